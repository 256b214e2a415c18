// Package log is the process-wide logger. It keeps the call shape of the
// standard library logger (Printf, Println, Fatal) on top of logrus so call
// sites read the same while output stays leveled and timestamped.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

type Fields = logrus.Fields

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.Formatter = &logrus.TextFormatter{
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006/01/02 15:04:05",
		FullTimestamp:          true,
	}
}

// SetLevel parses a level name ("debug", "info", ...). Unknown names keep the current level.
func SetLevel(name string) error {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

func Debugf(format string, args ...any) {
	Logger.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	Logger.Infof(format, args...)
}

func Printf(format string, args ...any) {
	Logger.Printf(format, args...)
}

func Println(args ...any) {
	Logger.Println(args...)
}

func Warnf(format string, args ...any) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	Logger.Errorf(format, args...)
}

func Fatal(args ...any) {
	Logger.Fatalln(args...)
}

func Fatalf(format string, args ...any) {
	Logger.Fatalf(format, args...)
}

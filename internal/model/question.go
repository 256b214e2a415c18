package model

// Question is an index-addressed survey question. Index equals the position in
// Survey.Questions and never changes once answers reference it.
type Question struct {
	Index     int      `json:"index" bson:"index"`
	Question  string   `json:"question" bson:"question"`
	Options   []string `json:"options" bson:"options"`
	Multiple  bool     `json:"multiple" bson:"multiple"`
	IsAC      bool     `json:"is_ac" bson:"is_ac"`
	ACCorrect string   `json:"ac_correct,omitempty" bson:"ac_correct,omitempty"`
}

// HasOption reports whether label is one of the question's options.
func (q *Question) HasOption(label string) bool {
	for _, o := range q.Options {
		if o == label {
			return true
		}
	}
	return false
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/qri-io/jsonschema"
)

// Structural checks for request bodies. Semantic rules (dates, quota bounds,
// attention checks) stay in the service layer.
const questionSchema = `{
	"type": "object",
	"required": ["question", "options"],
	"properties": {
		"question": {"type": "string", "minLength": 1},
		"options": {"type": "array", "minItems": 1, "items": {"type": "string"}},
		"multiple": {"type": "boolean"},
		"is_ac": {"type": "boolean"},
		"ac_correct": {"type": "string"}
	}
}`

var surveyDraftSchema = mustSchema(`{
	"type": "object",
	"required": ["name", "timeLimit", "maxAmount", "questions"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"ipfs": {"type": "string"},
		"timeLimit": {"type": "string"},
		"minAmount": {"type": "integer", "minimum": 0},
		"maxAmount": {"type": "integer", "minimum": 1},
		"prize": {"type": "number", "minimum": 0},
		"worldId": {"enum": ["optional", "required"]},
		"quarkId": {"enum": ["optional", "required"]},
		"segmentation": {"type": "array", "items": {"type": "string"}},
		"questions": {"type": "array", "minItems": 1, "items": ` + questionSchema + `}
	}
}`)

var appendQuestionsSchema = mustSchema(`{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"questions": {"type": "array", "minItems": 1, "items": ` + questionSchema + `}
	}
}`)

var submissionSchema = mustSchema(`{
	"type": "object",
	"required": ["data"],
	"properties": {
		"data": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["index", "answers"],
				"properties": {
					"index": {"type": "integer", "minimum": 0},
					"answers": {
						"anyOf": [
							{"type": "string"},
							{"type": "array", "items": {"type": "string"}}
						]
					}
				}
			}
		}
	}
}`)

const maxBodyBytes = 1 << 20

// readValidated reads the request body and checks it against schema. It writes
// the error response itself and reports false when the body is unusable.
func readValidated(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return nil, false
	}
	msg, err := validateBody(r.Context(), schema, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return nil, false
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return nil, false
	}
	return body, true
}

func mustSchema(src string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(src), rs); err != nil {
		panic(fmt.Sprintf("invalid built-in schema: %v", err))
	}
	return rs
}

// validateBody returns a readable message when body does not match schema
func validateBody(ctx context.Context, schema *jsonschema.Schema, body []byte) (string, error) {
	verrs, err := schema.ValidateBytes(ctx, body)
	if err != nil {
		return "", err
	}
	if len(verrs) == 0 {
		return "", nil
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		if e.PropertyPath != "" && e.PropertyPath != "/" {
			msgs = append(msgs, e.PropertyPath+": "+e.Message)
		} else {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; "), nil
}

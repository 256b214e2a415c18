// Package docs registers the OpenAPI document served at /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health": {
            "get": {"summary": "Liveness probe", "responses": {"200": {"description": "ok"}}}
        },
        "/v1/auth/login": {
            "post": {
                "summary": "Researcher login",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "token issued"}, "401": {"description": "invalid credentials"}}
            }
        },
        "/v1/auth/participant": {
            "post": {
                "summary": "Start an anonymous participant session, optionally verifying a World ID token",
                "responses": {"201": {"description": "session created"}, "403": {"description": "credential not verified"}}
            }
        },
        "/v1/surveys": {
            "get": {"summary": "List the caller's surveys", "security": [{"Bearer": []}], "responses": {"200": {"description": "surveys"}}},
            "post": {
                "summary": "Publish a survey",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SurveyDraft"}}],
                "responses": {"201": {"description": "published"}, "400": {"description": "invalid draft"}}
            }
        },
        "/v1/surveys/{surveyId}": {
            "get": {"summary": "Get a survey", "security": [{"Bearer": []}], "parameters": [{"$ref": "#/parameters/surveyId"}], "responses": {"200": {"description": "survey"}, "404": {"description": "not found"}}}
        },
        "/v1/surveys/{surveyId}/questions": {
            "post": {"summary": "Append questions", "security": [{"Bearer": []}], "parameters": [{"$ref": "#/parameters/surveyId"}], "responses": {"200": {"description": "updated survey"}, "409": {"description": "concurrent change"}}}
        },
        "/v1/surveys/{surveyId}/settlement/retry": {
            "post": {"summary": "Retry prize settlement", "security": [{"Bearer": []}], "parameters": [{"$ref": "#/parameters/surveyId"}], "responses": {"200": {"description": "settlement state"}, "409": {"description": "not retryable"}}}
        },
        "/v1/surveys/{surveyId}/results": {
            "get": {"summary": "Aggregated results", "security": [{"Bearer": []}], "parameters": [{"$ref": "#/parameters/surveyId"}], "responses": {"200": {"description": "results"}}}
        },
        "/v1/surveys/{surveyId}/answers": {
            "get": {"summary": "Raw answers", "security": [{"Bearer": []}], "parameters": [{"$ref": "#/parameters/surveyId"}], "responses": {"200": {"description": "answers"}}}
        },
        "/v1/participant/credentials/{provider}": {
            "post": {"summary": "Attach a worldid or quarkid credential", "security": [{"Bearer": []}], "responses": {"200": {"description": "participant"}, "403": {"description": "not verified"}}}
        },
        "/v1/available": {
            "get": {
                "summary": "Open surveys with eligibility",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"in": "query", "name": "segment", "type": "string"},
                    {"in": "query", "name": "worldId", "type": "boolean"},
                    {"in": "query", "name": "eligible", "type": "boolean"}
                ],
                "responses": {"200": {"description": "listings"}}
            }
        },
        "/v1/available/segments": {
            "get": {"summary": "Segmentation tags of open surveys", "security": [{"Bearer": []}], "responses": {"200": {"description": "segments"}}}
        },
        "/v1/available/{surveyId}": {
            "get": {"summary": "Survey with the caller's eligibility", "security": [{"Bearer": []}], "parameters": [{"$ref": "#/parameters/surveyId"}], "responses": {"200": {"description": "survey"}}}
        },
        "/v1/available/{surveyId}/answers": {
            "post": {
                "summary": "Submit answers",
                "security": [{"Bearer": []}],
                "parameters": [{"$ref": "#/parameters/surveyId"}],
                "responses": {
                    "201": {"description": "stored"},
                    "403": {"description": "not eligible"},
                    "409": {"description": "quota exceeded"},
                    "410": {"description": "survey closed"},
                    "422": {"description": "invalid option or missing answer"}
                }
            }
        }
    },
    "parameters": {
        "surveyId": {"in": "path", "name": "surveyId", "required": true, "type": "string"}
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "address": {"type": "string"}
            }
        },
        "QuestionDraft": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "multiple": {"type": "boolean"},
                "is_ac": {"type": "boolean"},
                "ac_correct": {"type": "string"}
            }
        },
        "SurveyDraft": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "timeLimit": {"type": "string", "format": "date-time"},
                "minAmount": {"type": "integer"},
                "maxAmount": {"type": "integer"},
                "prize": {"type": "number"},
                "worldId": {"type": "string", "enum": ["optional", "required"]},
                "quarkId": {"type": "string", "enum": ["optional", "required"]},
                "segmentation": {"type": "array", "items": {"type": "string"}},
                "questions": {"type": "array", "items": {"$ref": "#/definitions/QuestionDraft"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Certo API",
	Description:      "Surveys with proof-of-personhood requirements and prize escrow.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

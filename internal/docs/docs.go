// Package docs holds the OpenAPI description served at /swagger/.
//
// Regenerate with: swag init -g internal/transport/http/http.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/render": {
            "post": {
                "description": "Accepts a document holding character profiles and an annotated script (JSON or YAML).\nThe script is parsed, split, synthesized per segment and stitched into one track.\nWhen a segment cannot be synthesized the response lists the failed keys to re-run.",
                "consumes": ["application/json", "application/yaml"],
                "produces": ["audio/wav", "application/json"],
                "tags": ["render"],
                "summary": "Render a script to audio",
                "parameters": [
                    {
                        "description": "Characters and annotated script",
                        "name": "document",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/script.Document"}
                    },
                    {
                        "type": "string",
                        "description": "Output format: wav (default) or pcm",
                        "name": "format",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Run id; generated when omitted",
                        "name": "id",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {"description": "Rendered audio", "schema": {"type": "file"}},
                    "400": {"description": "Invalid document or script", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Internal processing error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Synthesis failed for one or more segments", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/jobs": {
            "post": {
                "description": "Queues the document for background rendering. The worker writes the audio to its output directory as <id>.<format>.",
                "consumes": ["application/json", "application/yaml"],
                "produces": ["application/json"],
                "tags": ["render"],
                "summary": "Queue a render job",
                "parameters": [
                    {
                        "description": "Characters and annotated script",
                        "name": "document",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/script.Document"}
                    },
                    {
                        "type": "string",
                        "description": "Output format: wav (default) or pcm",
                        "name": "format",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Job id; generated when omitted",
                        "name": "id",
                        "in": "query"
                    }
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/http.JobResponse"}},
                    "400": {"description": "Invalid document", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Job id already queued", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Queue disabled or unavailable", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "character.ProfileConfig": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "voice_reference": {"type": "string"},
                "voice_file": {"type": "string"},
                "pitch": {"type": "number"},
                "speech_rate": {"type": "number"},
                "volume": {"type": "number"},
                "emotion_intensity": {"type": "number"},
                "default_emotion": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "script.Document": {
            "type": "object",
            "properties": {
                "characters": {
                    "type": "object",
                    "additionalProperties": {"$ref": "#/definitions/character.ProfileConfig"}
                },
                "script": {"type": "string"}
            }
        },
        "http.FailedJob": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "character_id": {"type": "string"},
                "attempts": {"type": "integer"},
                "cause": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "error": {"type": "string"},
                "failed": {"type": "array", "items": {"$ref": "#/definitions/http.FailedJob"}},
                "skipped": {"type": "array", "items": {"type": "string"}},
                "retry_indices": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "http.JobResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string"}
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
	Title:            "scriptvoice API",
	Description:      "Renders annotated multi-character scripts to audio.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

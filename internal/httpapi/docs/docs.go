// Package docs holds the OpenAPI document served by the swagger build.
// Regenerate with `swag init -g cmd/skilld/docs.go -o internal/httpapi/docs`.
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
    "paths": {
        "/skills": {
            "get": {
                "produces": ["application/json"],
                "tags": ["skills"],
                "summary": "List skills",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SkillsResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Manager status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/skills/{id}/activate": {
            "post": {
                "produces": ["application/json"],
                "tags": ["skills"],
                "summary": "Activate a skill",
                "parameters": [{"type": "string", "description": "skill id (\"all\" for every skill)", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/skills/{id}/deactivate": {
            "post": {
                "produces": ["application/json"],
                "tags": ["skills"],
                "summary": "Deactivate a skill",
                "parameters": [{"type": "string", "description": "skill id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/skills/{id}/keep": {
            "post": {
                "produces": ["application/json"],
                "tags": ["skills"],
                "summary": "Deactivate every other skill",
                "parameters": [{"type": "string", "description": "skill id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/skills/{id}/converse": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["skills"],
                "summary": "Offer utterances to a skill",
                "parameters": [
                    {"type": "string", "description": "skill id", "name": "id", "in": "path", "required": true},
                    {"description": "utterances", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.ConverseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ConverseResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/update": {
            "post": {
                "produces": ["application/json"],
                "tags": ["update"],
                "summary": "Run an update pass on the next scan",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.ActionResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ActionResponse": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "example": "deactivate"},
                "affected": {"type": "integer", "example": 1},
                "skill": {"type": "string", "example": "weather"}
            }
        },
        "types.ConverseRequest": {
            "type": "object",
            "properties": {
                "lang": {"type": "string", "example": "en-us"},
                "utterances": {"type": "array", "items": {"type": "string"}, "example": ["what about tomorrow"]}
            }
        },
        "types.ConverseResponse": {
            "type": "object",
            "properties": {
                "result": {"type": "boolean", "example": true},
                "skill_id": {"type": "string", "example": "weather"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 404},
                "error": {"type": "string", "example": "skill id does not exist"}
            }
        },
        "types.SkillStatus": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean", "example": true},
                "id": {"type": "string", "example": "weather"},
                "last_error": {"type": "string"},
                "loaded": {"type": "boolean"},
                "loaded_at_unix": {"type": "integer"},
                "modified_unix": {"type": "integer", "example": 1700000000},
                "name": {"type": "string", "example": "Weather"},
                "path": {"type": "string"},
                "state": {"type": "string", "example": "ready"}
            }
        },
        "types.SkillsResponse": {
            "type": "object",
            "properties": {
                "skills": {"type": "array", "items": {"$ref": "#/definitions/types.SkillStatus"}}
            }
        },
        "types.UpdateStatus": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"},
                "next_attempt_unix": {"type": "integer", "example": 1700003600},
                "retries": {"type": "integer", "example": 0}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "connected": {"type": "boolean"},
                "draining_count": {"type": "integer"},
                "initialized": {"type": "boolean", "example": true},
                "loading_count": {"type": "integer"},
                "loads_total": {"type": "integer", "example": 12},
                "reloads_total": {"type": "integer", "example": 3},
                "server_time_unix": {"type": "integer", "example": 1700000000},
                "skills": {"type": "array", "items": {"$ref": "#/definitions/types.SkillStatus"}},
                "update": {"$ref": "#/definitions/types.UpdateStatus"},
                "uptime_seconds": {"type": "integer", "example": 3600}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "skilld API",
	Description:      "Admin API for the skill host: status, activation, conversation routing and updates.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

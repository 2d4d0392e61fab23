// Package docs registers the Swagger document served at /swagger.
// Regenerate with: swag init -g cmd/api/main.go
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
        "/health": {
            "get": {
                "description": "Returns the health status of the API and the dispenser link. A simulated dispenser reports degraded.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Service is healthy", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Service is degraded", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/dispenser/status": {
            "get": {
                "description": "Returns whether the dispenser is open and whether an auto-close is pending",
                "produces": ["application/json"],
                "tags": ["dispenser"],
                "summary": "Get dispenser status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        },
        "/dispenser/control": {
            "post": {
                "description": "Opens or closes a compartment. A scheduled open is closed again automatically after the configured delay.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["dispenser"],
                "summary": "Open or close the dispenser",
                "parameters": [
                    {"description": "Command", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.ControlRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ControlResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Already open or already closed", "schema": {"$ref": "#/definitions/types.ControlResponse"}},
                    "502": {"description": "Dispenser rejected the command", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Dispenser not connected", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Dispenser did not acknowledge in time", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/dispenser/auto-close/check": {
            "post": {
                "description": "Closes the dispenser if a scheduled auto-close deadline has passed",
                "produces": ["application/json"],
                "tags": ["dispenser"],
                "summary": "Run the auto-close check now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AutoCloseCheckResponse"}}
                }
            }
        },
        "/dispenser/history": {
            "get": {
                "description": "Returns journaled open/close/auto-close events, newest first",
                "produces": ["application/json"],
                "tags": ["dispenser"],
                "summary": "List recent dispenser commands",
                "parameters": [
                    {"type": "integer", "description": "Maximum entries (1-500, default 50)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HistoryResponse"}},
                    "400": {"description": "Invalid limit", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Database error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/dispenser/events": {
            "get": {
                "description": "Server-Sent Events stream of open, close, auto-close and failure notifications",
                "produces": ["text/event-stream"],
                "tags": ["dispenser"],
                "summary": "Subscribe to dispenser events",
                "responses": {
                    "200": {"description": "SSE event stream", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "db.CommandLogEntry": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "compartment": {"type": "integer"},
                "error": {"type": "string"},
                "event_type": {"type": "string"},
                "id": {"type": "string"},
                "occurred_at": {"type": "string"},
                "scheduled": {"type": "boolean"},
                "simulated": {"type": "boolean"},
                "source": {"type": "string"}
            }
        },
        "types.AutoCloseCheckResponse": {
            "type": "object",
            "properties": {
                "closed": {"type": "boolean"},
                "status": {"$ref": "#/definitions/types.StatusResponse"}
            }
        },
        "types.ControlRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["open", "close"], "example": "open"},
                "compartment": {"type": "integer", "example": 1},
                "scheduled": {"type": "boolean"}
            }
        },
        "types.ControlResponse": {
            "type": "object",
            "properties": {
                "already_closed": {"type": "boolean"},
                "already_open": {"type": "boolean"},
                "message": {"type": "string"},
                "status": {"$ref": "#/definitions/types.StatusResponse"},
                "succeeded": {"type": "boolean"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "controller": {"type": "string"},
                "status": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "types.HistoryResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/db.CommandLogEntry"}}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "auto_close_armed": {"type": "boolean"},
                "auto_close_at": {"type": "string"},
                "connected": {"type": "boolean"},
                "is_open": {"type": "boolean"},
                "simulated": {"type": "boolean"},
                "timestamp": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Pillbox API",
	Description:      "REST API for controlling a medication dispenser",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

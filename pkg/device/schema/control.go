package schema

import "encoding/json"

// ControlRequest is the JSON Schema for a dispenser control payload.
var ControlRequest = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"compartment": {"type": "integer", "minimum": 1},
		"action": {"type": "string", "enum": ["open", "close"]},
		"scheduled": {"type": "boolean"}
	},
	"required": ["action"],
	"additionalProperties": false
}`)

// HistoryQuery is the JSON Schema for command history arguments.
var HistoryQuery = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"limit": {"type": "integer", "minimum": 1, "maximum": 500}
	},
	"additionalProperties": false
}`)

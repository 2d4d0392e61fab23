package schema

import (
	"encoding/json"
	"testing"
)

func TestValidate_OpenRequest(t *testing.T) {
	v := NewValidator()

	err := v.Validate(ControlRequest, map[string]any{
		"compartment": float64(2),
		"action":      "open",
		"scheduled":   true,
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_ActionOnly(t *testing.T) {
	v := NewValidator()

	err := v.Validate(ControlRequest, map[string]any{
		"action": "close",
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_InvalidAction(t *testing.T) {
	v := NewValidator()

	err := v.Validate(ControlRequest, map[string]any{
		"action": "ouvrir",
	})
	if err == nil {
		t.Error("expected validation error for invalid action")
	}
}

func TestValidate_MissingAction(t *testing.T) {
	v := NewValidator()

	err := v.Validate(ControlRequest, map[string]any{
		"compartment": float64(1),
	})
	if err == nil {
		t.Error("expected validation error for missing action")
	}
}

func TestValidate_CompartmentOutOfRange(t *testing.T) {
	v := NewValidator()

	err := v.Validate(ControlRequest, map[string]any{
		"action":      "open",
		"compartment": float64(0),
	})
	if err == nil {
		t.Error("expected validation error for compartment 0")
	}
}

func TestValidate_FractionalCompartment(t *testing.T) {
	v := NewValidator()

	err := v.Validate(ControlRequest, map[string]any{
		"action":      "open",
		"compartment": 1.5,
	})
	if err == nil {
		t.Error("expected validation error for fractional compartment")
	}
}

func TestValidate_UnknownProperty(t *testing.T) {
	v := NewValidator()

	err := v.Validate(ControlRequest, map[string]any{
		"action": "open",
		"motor":  float64(1),
	})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidate_HistoryLimit(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(HistoryQuery, map[string]any{"limit": float64(20)}); err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
	if err := v.Validate(HistoryQuery, map[string]any{"limit": float64(1000)}); err == nil {
		t.Error("expected validation error for oversized limit")
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	v := NewValidator()

	err := v.Validate(json.RawMessage(`{}`), map[string]any{
		"anything": "goes",
	})
	if err != nil {
		t.Errorf("expected no validation with empty schema, got: %v", err)
	}
}

func TestValidate_SchemaCaching(t *testing.T) {
	v := NewValidator()

	_ = v.Validate(ControlRequest, map[string]any{"action": "open"})
	_ = v.Validate(ControlRequest, map[string]any{"action": "close"})

	v.mu.RLock()
	count := len(v.cache)
	v.mu.RUnlock()

	if count != 1 {
		t.Errorf("expected 1 cached schema, got %d", count)
	}
}

func TestDecodeAndValidate(t *testing.T) {
	v := NewValidator()

	payload, err := v.DecodeAndValidate(ControlRequest, []byte(`{"action":"open","compartment":2}`))
	if err != nil {
		t.Fatalf("expected valid payload, got: %v", err)
	}
	if payload["action"] != "open" {
		t.Errorf("expected action open, got %v", payload["action"])
	}

	if _, err := v.DecodeAndValidate(ControlRequest, []byte(`{"action":`)); err == nil {
		t.Error("expected error for malformed JSON")
	}

	if _, err := v.DecodeAndValidate(ControlRequest, nil); err == nil {
		t.Error("expected error for empty body without action")
	}

	if _, err := v.DecodeAndValidate(HistoryQuery, nil); err != nil {
		t.Errorf("expected empty history query to pass, got: %v", err)
	}
}

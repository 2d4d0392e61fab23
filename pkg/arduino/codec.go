package arduino

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/urmzd/pillbox/pkg/device"
)

// Acknowledgement tokens sent back by the dispenser firmware
const (
	ackPositiveToken = "OK"
	ackNegativeToken = "ERROR"
)

// AckResult classifies the text received after a command.
type AckResult int

const (
	// AckIndeterminate means neither token has been seen yet
	AckIndeterminate AckResult = iota
	AckPositive
	AckNegative
)

func (r AckResult) String() string {
	switch r {
	case AckPositive:
		return "positive"
	case AckNegative:
		return "negative"
	default:
		return "indeterminate"
	}
}

// wireCommand is the JSON record written to the serial line.
type wireCommand struct {
	Motor  int    `json:"motor"`
	Action string `json:"action"`
}

// EncodeCommand renders cmd as a single newline-terminated JSON line,
// e.g. {"motor":1,"action":"open"}.
func EncodeCommand(cmd device.Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	line, err := json.Marshal(wireCommand{Motor: cmd.Compartment, Action: string(cmd.Action)})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}
	return append(line, '\n'), nil
}

// DecodeAck inspects everything received so far. Replies may be split over
// several reads, so callers pass the accumulated buffer rather than a single
// chunk.
func DecodeAck(buffered []byte) AckResult {
	switch {
	case bytes.Contains(buffered, []byte(ackPositiveToken)):
		return AckPositive
	case bytes.Contains(buffered, []byte(ackNegativeToken)):
		return AckNegative
	default:
		return AckIndeterminate
	}
}

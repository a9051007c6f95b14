package keyboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CallbackDataLimitBytes is the platform limit for inline button payloads.
const CallbackDataLimitBytes = 64

const (
	ActionCancel = "cancel"
	ActionNext   = "next"
	ActionDone   = "done"
)

var (
	// ErrTooLong reports a payload that does not fit into CallbackDataLimitBytes.
	ErrTooLong = errors.New("callback data too long")
	// ErrMalformed reports callback data that is not an encoded ButtonAction.
	ErrMalformed = errors.New("malformed callback data")
)

// TooLongError carries the size of an oversized payload.
type TooLongError struct {
	Size int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("%s: %d bytes exceeds %d byte limit", ErrTooLong, e.Size, CallbackDataLimitBytes)
}

func (e *TooLongError) Unwrap() error {
	return ErrTooLong
}

// ButtonAction is the payload carried by every flow button. Mode is the state
// code the button was issued in.
type ButtonAction struct {
	Mode   int    `json:"mode"`
	Action string `json:"action"`
}

// Actionable reports whether the action names something to do.
func (a ButtonAction) Actionable() bool {
	return a.Action != ""
}

// Encode serializes the action into lower-cased JSON.
func Encode(action ButtonAction) (string, error) {
	raw, err := json.Marshal(action)
	if err != nil {
		return "", fmt.Errorf("encode button action: %w", err)
	}

	payload := strings.ToLower(string(raw))
	if len(payload) > CallbackDataLimitBytes {
		return "", &TooLongError{Size: len(payload)}
	}

	return payload, nil
}

// Decode is the inverse of Encode. Empty data decodes to a zero, non-actionable
// ButtonAction without error.
func Decode(data string) (ButtonAction, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return ButtonAction{}, nil
	}

	var action ButtonAction
	if err := json.Unmarshal([]byte(data), &action); err != nil {
		return ButtonAction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return action, nil
}

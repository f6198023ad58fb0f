package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/sessiondex/sessiondex/internal/metrics"
)

// Validatable is implemented by every request payload type; Validate
// reports the first violation found, or nil.
type Validatable interface {
	Validate() error
}

// DecodeAndValidate unmarshals payload into dest and runs its
// Validate, wrapping any failure (decode or validation) as a
// *ValidationError tagged with channel — the distinct error class the
// IPC boundary promises callers (spec §7).
func DecodeAndValidate(channel string, payload json.RawMessage, dest Validatable) error {
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, dest); err != nil {
			return &ValidationError{Channel: channel, Message: err.Error()}
		}
	}
	if err := dest.Validate(); err != nil {
		return &ValidationError{Channel: channel, Message: err.Error()}
	}
	return nil
}

// EncodeResponse marshals a response payload into a Response envelope.
func EncodeResponse(v any) (Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("ipc: encode response: %w", err)
	}
	return Response{Payload: data}, nil
}

// RecordOutcome tags a completed channel dispatch (validation, handler
// execution, or encoding) with its outcome for IpcRequestsTotal. The
// socket and HTTP dispatch layers call this once per request after the
// handler returns, independent of where in the pipeline it failed.
func RecordOutcome(channel string, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.IpcRequestsTotal.WithLabelValues(channel, outcome).Inc()
}

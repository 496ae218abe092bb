// Package convert serializes event sequences to and from their stored form.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/model"
)

// EncodeEvents serializes events as a JSON array. A nil slice encodes as "[]".
func EncodeEvents(events []model.CaptureEvent) ([]byte, error) {
	if events == nil {
		events = []model.CaptureEvent{}
	}
	b, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("%w: encode events: %w", errs.ErrSerialization, err)
	}
	return b, nil
}

// DecodeEvents parses a JSON array produced by EncodeEvents.
// A JSON null decodes to an empty sequence.
func DecodeEvents(b []byte) ([]model.CaptureEvent, error) {
	var out []model.CaptureEvent
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: decode events: %w", errs.ErrSerialization, err)
	}
	if out == nil {
		out = []model.CaptureEvent{}
	}
	return out, nil
}

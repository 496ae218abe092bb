package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/and161185/capture-queue/internal/model"
	"github.com/and161185/capture-queue/internal/service"
)

// jsonLinesSink writes each event as one JSON document per line.
type jsonLinesSink struct {
	enc *json.Encoder
}

var _ service.Sink = (*jsonLinesSink)(nil)

func newJSONLinesSink(w io.Writer) *jsonLinesSink {
	return &jsonLinesSink{enc: json.NewEncoder(w)}
}

func (s *jsonLinesSink) Send(ctx context.Context, ev model.CaptureEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.enc.Encode(ev)
}

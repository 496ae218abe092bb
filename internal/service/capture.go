// Package service exposes the capture queue to callers: enqueue on capture,
// drain or flush once connectivity returns.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/capture-queue/internal/crypto"
	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/model"
	"github.com/and161185/capture-queue/internal/queue"
	"github.com/and161185/capture-queue/internal/secret"
	"github.com/and161185/capture-queue/internal/storage"
)

// Sink receives drained events, typically a network client posting them upstream.
type Sink interface {
	Send(ctx context.Context, ev model.CaptureEvent) error
}

// Capture is the caller-facing facade over the secure queue and its plaintext fallback.
// None of its queue operations return an error.
type Capture struct {
	secure *queue.Secure
	plain  *queue.Plain
	log    *zap.Logger
}

// NewCapture builds the queues over kv. suite and log may be nil.
func NewCapture(kv storage.Store, keys storage.Keys, suite crypto.Suite, log *zap.Logger) *Capture {
	if log == nil {
		log = zap.NewNop()
	}
	secure := queue.NewSecure(kv, keys, suite, log)
	return &Capture{secure: secure, plain: secure.Fallback(), log: log}
}

// InitDeviceSecret provisions the device secret if needed and returns it.
func (c *Capture) InitDeviceSecret(ctx context.Context) secret.Secret {
	return c.secure.Secrets().GetOrCreate(ctx)
}

// EnqueueSecure stores ev encrypted, falling back to the plaintext queue.
func (c *Capture) EnqueueSecure(ctx context.Context, ev model.CaptureEvent, opts ...queue.Option) queue.EnqueueResult {
	return c.secure.Enqueue(ctx, ev, opts...)
}

// DrainAllSecure returns and clears the encrypted queue.
func (c *Capture) DrainAllSecure(ctx context.Context, opts ...queue.Option) queue.ReadResult {
	return c.secure.Drain(ctx, opts...)
}

// PeekAllSecure returns the encrypted queue without clearing it.
func (c *Capture) PeekAllSecure(ctx context.Context, opts ...queue.Option) queue.ReadResult {
	return c.secure.Peek(ctx, opts...)
}

// Enqueue stores ev in the plaintext queue.
func (c *Capture) Enqueue(ctx context.Context, ev model.CaptureEvent) queue.EnqueueResult {
	return c.plain.Enqueue(ctx, ev)
}

// DrainAll returns and clears the plaintext queue.
func (c *Capture) DrainAll(ctx context.Context) queue.ReadResult {
	return c.plain.Drain(ctx)
}

// PeekAll returns the plaintext queue without clearing it.
func (c *Capture) PeekAll(ctx context.Context) queue.ReadResult {
	return c.plain.Peek(ctx)
}

// Status is a non-destructive snapshot of both queues.
type Status struct {
	Secure int
	Plain  int
	// SecureReadable is false when the encrypted queue could not be opened.
	SecureReadable    bool
	SecretProvisioned bool
	// FallbackSecret is true when the secret slot cannot be read.
	FallbackSecret bool
	// Cause is the first degradation seen while collecting the snapshot.
	Cause error
}

// Status counts queued events without writing to storage. The device secret is
// looked up, never created: without one, an existing encrypted blob can only
// have been sealed under the fallback secret.
func (c *Capture) Status(ctx context.Context) Status {
	var st Status
	sec, err := c.secure.Secrets().Lookup(ctx)
	switch {
	case err == nil:
		st.SecretProvisioned = true
	case errors.Is(err, errs.ErrNotFound):
		sec = secret.FallbackSecret
	default:
		st.FallbackSecret = true
		sec = secret.FallbackSecret
	}

	res := c.secure.Peek(ctx, queue.WithSecret(sec))
	if res.Path == queue.PathSecure {
		st.Secure, st.SecureReadable = len(res.Events), true
	} else {
		st.Cause = res.Cause
	}

	pl := c.plain.Peek(ctx)
	st.Plain = len(pl.Events)
	if st.Cause == nil {
		st.Cause = pl.Cause
	}
	return st
}

// Drained holds the results of draining both queues.
type Drained struct {
	Secure queue.ReadResult
	Plain  queue.ReadResult
}

// All returns the secure batch followed by the plain batch.
func (d Drained) All() []model.CaptureEvent {
	out := make([]model.CaptureEvent, 0, len(d.Secure.Events)+len(d.Plain.Events))
	out = append(out, d.Secure.Events...)
	return append(out, d.Plain.Events...)
}

// DrainEverything drains the encrypted queue, then the plaintext queue.
func (c *Capture) DrainEverything(ctx context.Context) Drained {
	return Drained{Secure: c.secure.Drain(ctx), Plain: c.plain.Drain(ctx)}
}

// FlushReport summarizes a Flush.
type FlushReport struct {
	Sent     int `json:"sent"`
	Requeued int `json:"requeued"`
	// Lost counts events that could be neither sent nor re-enqueued.
	Lost int `json:"lost"`
}

// Flush drains both queues and sends every event to sink in order. On the first
// send failure the remaining events, the failed one included, are re-enqueued
// on the secure path and the send error is returned.
func (c *Capture) Flush(ctx context.Context, sink Sink) (FlushReport, error) {
	var rep FlushReport
	events := c.DrainEverything(ctx).All()

	for i, ev := range events {
		err := ctx.Err()
		if err == nil {
			err = sink.Send(ctx, ev)
		}
		if err != nil {
			c.requeue(ctx, events[i:], &rep)
			c.log.Warn("flush interrupted",
				zap.Int("sent", rep.Sent),
				zap.Int("requeued", rep.Requeued),
				zap.Int("lost", rep.Lost),
				zap.Error(err),
			)
			return rep, fmt.Errorf("flush: send event %d of %d: %w", i+1, len(events), err)
		}
		rep.Sent++
	}

	if len(events) > 0 {
		c.log.Info("flush complete", zap.Int("sent", rep.Sent))
	}
	return rep, nil
}

func (c *Capture) requeue(ctx context.Context, events []model.CaptureEvent, rep *FlushReport) {
	// a cancelled ctx would make file and sql backends refuse the write
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		if c.secure.Enqueue(ctx, ev).Stored() {
			rep.Requeued++
		} else {
			rep.Lost++
		}
	}
}

package queue

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/and161185/capture-queue/internal/convert"
	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/model"
	"github.com/and161185/capture-queue/internal/storage"
)

// Plain is the unencrypted fallback queue. It is the last line of defense:
// its own failures degrade to a no-op enqueue or an empty read.
type Plain struct {
	kv  storage.Store
	key string
	log *zap.Logger
}

// NewPlain returns a queue persisted under key. log may be nil.
func NewPlain(kv storage.Store, key string, log *zap.Logger) *Plain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Plain{kv: kv, key: key, log: log}
}

// Enqueue appends ev. A malformed stored sequence is left untouched and ev is dropped.
func (q *Plain) Enqueue(ctx context.Context, ev model.CaptureEvent) EnqueueResult {
	err := guard(q.log, "plain.enqueue", func() error {
		events, _, err := q.load(ctx)
		if err != nil {
			return err
		}
		b, err := convert.EncodeEvents(append(events, ev))
		if err != nil {
			return err
		}
		if err := q.kv.Set(ctx, q.key, b); err != nil {
			return storageErr("write", q.key, err)
		}
		return nil
	})
	if err != nil {
		q.log.Warn("plain enqueue failed, event dropped", zap.String("slot", q.key), zap.Error(err))
		return EnqueueResult{Path: PathDropped, Cause: err}
	}
	return EnqueueResult{Path: PathPlain}
}

// Drain returns every queued event and clears the slot.
func (q *Plain) Drain(ctx context.Context) ReadResult { return q.read(ctx, true) }

// Peek returns every queued event without clearing the slot.
func (q *Plain) Peek(ctx context.Context) ReadResult { return q.read(ctx, false) }

func (q *Plain) read(ctx context.Context, clear bool) ReadResult {
	op := "plain.peek"
	if clear {
		op = "plain.drain"
	}

	var events []model.CaptureEvent
	err := guard(q.log, op, func() error {
		ev, found, err := q.load(ctx)
		if err != nil {
			return err
		}
		if clear && found {
			if err := q.kv.Delete(ctx, q.key); err != nil {
				return storageErr("clear", q.key, err)
			}
		}
		events = ev
		return nil
	})
	if err != nil {
		q.log.Warn("plain read failed, returning empty", zap.String("op", op), zap.Error(err))
		return ReadResult{Events: []model.CaptureEvent{}, Path: PathPlain, Cause: err}
	}
	return ReadResult{Events: events, Path: PathPlain}
}

func (q *Plain) load(ctx context.Context) ([]model.CaptureEvent, bool, error) {
	b, err := q.kv.Get(ctx, q.key)
	if errors.Is(err, errs.ErrNotFound) {
		return []model.CaptureEvent{}, false, nil
	}
	if err != nil {
		return nil, false, storageErr("read", q.key, err)
	}
	events, err := convert.DecodeEvents(b)
	if err != nil {
		return nil, true, err
	}
	return events, true, nil
}

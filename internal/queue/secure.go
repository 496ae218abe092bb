package queue

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/and161185/capture-queue/internal/convert"
	"github.com/and161185/capture-queue/internal/crypto"
	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/model"
	"github.com/and161185/capture-queue/internal/secret"
	"github.com/and161185/capture-queue/internal/storage"
)

// Secure is the encrypted queue. The whole sequence is re-sealed under a fresh
// nonce on every append and stored as one envelope. Any failure falls through
// to the plaintext queue.
//
// Operations are not safe for concurrent use: two overlapping enqueues can lose
// one of the events (whole-blob read-modify-write).
type Secure struct {
	kv       storage.Store
	key      string
	secrets  *secret.Store
	suite    crypto.Suite
	fallback *Plain
	log      *zap.Logger
}

// NewSecure wires the secure queue, its secret store and its fallback queue over kv.
// suite and log may be nil.
func NewSecure(kv storage.Store, keys storage.Keys, suite crypto.Suite, log *zap.Logger) *Secure {
	if log == nil {
		log = zap.NewNop()
	}
	if suite == nil {
		suite = crypto.NewStandard()
	}
	return &Secure{
		kv:       kv,
		key:      keys.Secure,
		secrets:  secret.NewStore(kv, keys.Secret, log),
		suite:    suite,
		fallback: NewPlain(kv, keys.Plain, log),
		log:      log,
	}
}

// Secrets returns the device secret store backing this queue.
func (q *Secure) Secrets() *secret.Store { return q.secrets }

// Fallback returns the plaintext queue used on failure.
func (q *Secure) Fallback() *Plain { return q.fallback }

// Enqueue appends ev to the encrypted sequence, or to the plaintext queue on failure.
func (q *Secure) Enqueue(ctx context.Context, ev model.CaptureEvent, opts ...Option) EnqueueResult {
	o := collect(opts)
	err := guard(q.log, "secure.enqueue", func() error { return q.push(ctx, ev, o) })
	if err == nil {
		return EnqueueResult{Path: PathSecure}
	}

	q.log.Warn("secure enqueue failed, using plain queue", zap.String("slot", q.key), zap.Error(err))
	res := q.fallback.Enqueue(ctx, ev)
	res.Cause = errors.Join(err, res.Cause)
	return res
}

// Drain returns every encrypted event in insertion order and clears the slot.
// On failure it drains the plaintext queue instead.
func (q *Secure) Drain(ctx context.Context, opts ...Option) ReadResult {
	return q.read(ctx, true, collect(opts))
}

// Peek is Drain without clearing storage.
func (q *Secure) Peek(ctx context.Context, opts ...Option) ReadResult {
	return q.read(ctx, false, collect(opts))
}

func (q *Secure) push(ctx context.Context, ev model.CaptureEvent, o callOptions) error {
	key, err := q.deriveKey(ctx, o)
	if err != nil {
		return err
	}
	defer key.Wipe()

	events := []model.CaptureEvent{}
	blob, err := q.kv.Get(ctx, q.key)
	switch {
	case err == nil:
		if events, err = q.open(key, blob); err != nil {
			return err
		}
	case !errors.Is(err, errs.ErrNotFound):
		return storageErr("read", q.key, err)
	}

	pt, err := convert.EncodeEvents(append(events, ev))
	if err != nil {
		return err
	}
	env, err := q.suite.Seal(key, pt)
	if err != nil {
		return err
	}
	if err := q.kv.Set(ctx, q.key, []byte(env.String())); err != nil {
		return storageErr("write", q.key, err)
	}
	return nil
}

func (q *Secure) read(ctx context.Context, clear bool, o callOptions) ReadResult {
	op := "secure.peek"
	if clear {
		op = "secure.drain"
	}

	var events []model.CaptureEvent
	err := guard(q.log, op, func() error {
		blob, err := q.kv.Get(ctx, q.key)
		if errors.Is(err, errs.ErrNotFound) {
			events = []model.CaptureEvent{}
			return nil
		}
		if err != nil {
			return storageErr("read", q.key, err)
		}

		key, err := q.deriveKey(ctx, o)
		if err != nil {
			return err
		}
		defer key.Wipe()

		ev, err := q.open(key, blob)
		if err != nil {
			return err
		}
		if clear {
			if err := q.kv.Delete(ctx, q.key); err != nil {
				return storageErr("clear", q.key, err)
			}
		}
		events = ev
		return nil
	})
	if err == nil {
		return ReadResult{Events: events, Path: PathSecure}
	}

	q.log.Warn("secure read failed, using plain queue", zap.String("op", op), zap.Error(err))
	var res ReadResult
	if clear {
		res = q.fallback.Drain(ctx)
	} else {
		res = q.fallback.Peek(ctx)
	}
	res.Cause = errors.Join(err, res.Cause)
	return res
}

func (q *Secure) deriveKey(ctx context.Context, o callOptions) (*crypto.Key, error) {
	var sec secret.Secret
	if o.secret != nil {
		sec = *o.secret
	} else {
		sec = q.secrets.GetOrCreate(ctx)
	}
	return q.suite.DeriveKey(sec.Bytes())
}

func (q *Secure) open(key *crypto.Key, blob []byte) ([]model.CaptureEvent, error) {
	env, err := crypto.ParseEnvelope(string(blob))
	if err != nil {
		return nil, err
	}
	pt, err := q.suite.Open(key, env)
	if err != nil {
		return nil, err
	}
	return convert.DecodeEvents(pt)
}

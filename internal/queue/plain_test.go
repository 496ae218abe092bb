package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/model"
	"github.com/and161185/capture-queue/internal/storage/memory"
	"github.com/and161185/capture-queue/internal/storage/storagetest"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func mustTime(t *testing.T) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, "2024-01-01T08:00:00Z")
	require.NoError(t, err)
	return at
}

func TestPlain_EnqueueDrainPeek(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	q := NewPlain(kv, keys.Plain, nil)

	e1 := ev(model.KindClockIn, "emp-1", "2024-01-01T08:00:00Z")
	e2 := ev(model.KindClockOut, "emp-1", "2024-01-01T17:00:00Z")
	require.Equal(t, PathPlain, q.Enqueue(ctx, e1).Path)
	require.Equal(t, PathPlain, q.Enqueue(ctx, e2).Path)

	raw, err := kv.Get(ctx, keys.Plain)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"employeeId":"emp-1"`)

	require.Equal(t, []model.CaptureEvent{e1, e2}, q.Peek(ctx).Events)
	require.Equal(t, []model.CaptureEvent{e1, e2}, q.Drain(ctx).Events)

	empty := q.Drain(ctx)
	require.NoError(t, empty.Cause)
	require.NotNil(t, empty.Events)
	require.Empty(t, empty.Events)
}

func TestPlain_MalformedBlobIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, keys.Plain, []byte("{broken")))
	q := NewPlain(kv, keys.Plain, nil)

	res := q.Enqueue(ctx, ev(model.KindClockIn, "emp-1", "2024-01-01T08:00:00Z"))
	require.Equal(t, PathDropped, res.Path)
	require.ErrorIs(t, res.Cause, errs.ErrSerialization)

	raw, _ := kv.Get(ctx, keys.Plain)
	require.Equal(t, "{broken", string(raw))

	read := q.Drain(ctx)
	require.Empty(t, read.Events)
	require.ErrorIs(t, read.Cause, errs.ErrSerialization)
}

func TestPlain_StorageFailuresSwallowed(t *testing.T) {
	ctx := context.Background()
	kv := storagetest.NewFaulty().FailSet(keys.Plain).FailGet(keys.Plain)
	q := NewPlain(kv, keys.Plain, nil)

	res := q.Enqueue(ctx, ev(model.KindClockIn, "emp-1", "2024-01-01T08:00:00Z"))
	require.Equal(t, PathDropped, res.Path)
	require.ErrorIs(t, res.Cause, errs.ErrStorageUnavailable)

	read := q.Peek(ctx)
	require.Empty(t, read.Events)
	require.ErrorIs(t, read.Cause, storagetest.ErrInjected)
}

func TestPlain_DrainClearFailureReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storagetest.NewFaulty()
	q := NewPlain(kv, keys.Plain, nil)
	e := ev(model.KindClockIn, "emp-1", "2024-01-01T08:00:00Z")
	q.Enqueue(ctx, e)

	kv.FailDelete(keys.Plain)
	require.Empty(t, q.Drain(ctx).Events)

	kv.Heal()
	require.Equal(t, []model.CaptureEvent{e}, q.Drain(ctx).Events)
}

func TestPlain_PanicRecovered(t *testing.T) {
	ctx := context.Background()
	q := NewPlain(storagetest.NewFaulty().Panic(), keys.Plain, nil)
	require.NotPanics(t, func() {
		require.Equal(t, PathDropped, q.Enqueue(ctx, model.CaptureEvent{}).Path)
		require.Empty(t, q.Peek(ctx).Events)
	})
}

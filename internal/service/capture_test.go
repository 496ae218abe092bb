package service

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/capture-queue/internal/crypto"
	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/model"
	"github.com/and161185/capture-queue/internal/queue"
	"github.com/and161185/capture-queue/internal/secret"
	"github.com/and161185/capture-queue/internal/storage"
	"github.com/and161185/capture-queue/internal/storage/memory"
	"github.com/and161185/capture-queue/internal/storage/storagetest"
)

var keys = storage.DefaultKeys()

func fastSuite() crypto.Suite {
	return &crypto.Standard{Rand: rand.Reader, Salt: crypto.DefaultSalt, Iterations: 1000}
}

func event(subject, ts string) model.CaptureEvent {
	return model.CaptureEvent{
		Kind:         model.KindClockIn,
		SubjectID:    subject,
		TimestampISO: ts,
		Date:         ts[:10],
		Photo:        "data:image/jpeg;base64,AAAA",
	}
}

// recordingSink accepts events until failAt (1-based), then fails.
type recordingSink struct {
	got    []model.CaptureEvent
	failAt int
}

var errOffline = errors.New("offline")

func (s *recordingSink) Send(_ context.Context, ev model.CaptureEvent) error {
	if s.failAt > 0 && len(s.got)+1 >= s.failAt {
		return errOffline
	}
	s.got = append(s.got, ev)
	return nil
}

func TestCapture_InitDeviceSecretIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	c := NewCapture(kv, keys, fastSuite(), nil)

	s1 := c.InitDeviceSecret(ctx)
	s2 := c.InitDeviceSecret(ctx)
	require.Equal(t, s1, s2)
	require.Len(t, string(s1), 64)
	require.False(t, s1.IsFallback())

	stored, err := kv.Get(ctx, keys.Secret)
	require.NoError(t, err)
	require.Equal(t, string(s1), string(stored))
}

func TestCapture_SecureAndPlainAreSeparate(t *testing.T) {
	ctx := context.Background()
	c := NewCapture(memory.New(), keys, fastSuite(), nil)
	a := event("emp-1", "2024-01-01T08:00:00Z")
	b := event("emp-2", "2024-01-01T08:05:00Z")

	require.Equal(t, queue.PathSecure, c.EnqueueSecure(ctx, a).Path)
	require.Equal(t, queue.PathPlain, c.Enqueue(ctx, b).Path)

	require.Equal(t, []model.CaptureEvent{a}, c.PeekAllSecure(ctx).Events)
	require.Equal(t, []model.CaptureEvent{b}, c.PeekAll(ctx).Events)

	require.Equal(t, []model.CaptureEvent{a}, c.DrainAllSecure(ctx).Events)
	require.Equal(t, []model.CaptureEvent{b}, c.DrainAll(ctx).Events)
	require.Empty(t, c.PeekAllSecure(ctx).Events)
	require.Empty(t, c.PeekAll(ctx).Events)
}

func TestCapture_WithSecretPassThrough(t *testing.T) {
	ctx := context.Background()
	c := NewCapture(memory.New(), keys, fastSuite(), nil)
	a := event("emp-1", "2024-01-01T08:00:00Z")

	c.EnqueueSecure(ctx, a, queue.WithSecret("override"))
	require.Equal(t, queue.PathPlain, c.PeekAllSecure(ctx).Path)
	require.Equal(t, []model.CaptureEvent{a}, c.DrainAllSecure(ctx, queue.WithSecret("override")).Events)
}

func TestCapture_Status(t *testing.T) {
	ctx := context.Background()
	c := NewCapture(memory.New(), keys, fastSuite(), nil)
	c.EnqueueSecure(ctx, event("emp-1", "2024-01-01T08:00:00Z"))
	c.EnqueueSecure(ctx, event("emp-1", "2024-01-01T17:00:00Z"))
	c.Enqueue(ctx, event("emp-2", "2024-01-01T09:00:00Z"))

	st := c.Status(ctx)
	require.Equal(t, 2, st.Secure)
	require.Equal(t, 1, st.Plain)
	require.True(t, st.SecureReadable)
	require.True(t, st.SecretProvisioned)
	require.False(t, st.FallbackSecret)
	require.NoError(t, st.Cause)

	// status is non-destructive
	require.Equal(t, st, c.Status(ctx))
}

func TestCapture_StatusUnreadableSecureQueue(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, keys.Secure, []byte("garbage")))
	c := NewCapture(kv, keys, fastSuite(), nil)
	c.Enqueue(ctx, event("emp-2", "2024-01-01T09:00:00Z"))

	st := c.Status(ctx)
	require.False(t, st.SecureReadable)
	require.Zero(t, st.Secure)
	require.Equal(t, 1, st.Plain)
	require.ErrorIs(t, st.Cause, errs.ErrDecryptionFailed)
}

func TestCapture_StatusReportsFallbackSecret(t *testing.T) {
	kv := storagetest.NewFaulty().FailGet(keys.Secret)
	c := NewCapture(kv, keys, fastSuite(), nil)
	require.True(t, c.Status(context.Background()).FallbackSecret)
}

func TestCapture_DrainEverything(t *testing.T) {
	ctx := context.Background()
	c := NewCapture(memory.New(), keys, fastSuite(), nil)
	a := event("emp-1", "2024-01-01T08:00:00Z")
	b := event("emp-2", "2024-01-01T08:05:00Z")
	c.EnqueueSecure(ctx, a)
	c.Enqueue(ctx, b)

	d := c.DrainEverything(ctx)
	require.Equal(t, queue.PathSecure, d.Secure.Path)
	require.Equal(t, queue.PathPlain, d.Plain.Path)
	require.Equal(t, []model.CaptureEvent{a, b}, d.All())

	require.Empty(t, c.DrainEverything(ctx).All())
}

func TestCapture_FlushSendsInOrder(t *testing.T) {
	ctx := context.Background()
	c := NewCapture(memory.New(), keys, fastSuite(), nil)
	e1 := event("emp-1", "2024-01-01T08:00:00Z")
	e2 := event("emp-1", "2024-01-01T12:00:00Z")
	e3 := event("emp-2", "2024-01-01T13:00:00Z")
	c.EnqueueSecure(ctx, e1)
	c.EnqueueSecure(ctx, e2)
	c.Enqueue(ctx, e3)

	sink := &recordingSink{}
	rep, err := c.Flush(ctx, sink)
	require.NoError(t, err)
	require.Equal(t, FlushReport{Sent: 3}, rep)
	require.Equal(t, []model.CaptureEvent{e1, e2, e3}, sink.got)
	require.Empty(t, c.DrainEverything(ctx).All())
}

func TestCapture_FlushRequeuesFromFirstFailure(t *testing.T) {
	ctx := context.Background()
	c := NewCapture(memory.New(), keys, fastSuite(), nil)
	e1 := event("emp-1", "2024-01-01T08:00:00Z")
	e2 := event("emp-1", "2024-01-01T12:00:00Z")
	e3 := event("emp-2", "2024-01-01T13:00:00Z")
	c.EnqueueSecure(ctx, e1)
	c.EnqueueSecure(ctx, e2)
	c.Enqueue(ctx, e3)

	sink := &recordingSink{failAt: 2}
	rep, err := c.Flush(ctx, sink)
	require.ErrorIs(t, err, errOffline)
	require.Equal(t, FlushReport{Sent: 1, Requeued: 2}, rep)
	require.Equal(t, []model.CaptureEvent{e1}, sink.got)

	require.Equal(t, []model.CaptureEvent{e2, e3}, c.PeekAllSecure(ctx).Events)
	require.Empty(t, c.PeekAll(ctx).Events)
}

func TestCapture_FlushCancelledContextRequeuesEverything(t *testing.T) {
	c := NewCapture(memory.New(), keys, fastSuite(), nil)
	e1 := event("emp-1", "2024-01-01T08:00:00Z")
	c.EnqueueSecure(context.Background(), e1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &recordingSink{}
	rep, err := c.Flush(ctx, sink)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, FlushReport{Requeued: 1}, rep)
	require.Empty(t, sink.got)
	require.Equal(t, []model.CaptureEvent{e1}, c.PeekAllSecure(context.Background()).Events)
}

func TestCapture_FlushCountsLostEvents(t *testing.T) {
	ctx := context.Background()
	kv := storagetest.NewFaulty()
	c := NewCapture(kv, keys, fastSuite(), nil)
	c.EnqueueSecure(ctx, event("emp-1", "2024-01-01T08:00:00Z"))

	sink := &recordingSink{failAt: 1}
	kv.FailSet(storagetest.All)
	rep, err := c.Flush(ctx, sink)
	require.Error(t, err)
	require.Equal(t, FlushReport{Lost: 1}, rep)
}

func TestCapture_FlushEmpty(t *testing.T) {
	c := NewCapture(memory.New(), keys, nil, nil)
	rep, err := c.Flush(context.Background(), &recordingSink{failAt: 1})
	require.NoError(t, err)
	require.Zero(t, rep)
}

func TestCapture_StatusDoesNotProvisionSecret(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	c := NewCapture(kv, keys, fastSuite(), nil)

	st := c.Status(ctx)
	require.False(t, st.SecretProvisioned)
	require.False(t, st.FallbackSecret)
	require.True(t, st.SecureReadable)
	require.Zero(t, st.Secure)
	require.Equal(t, 0, kv.Len())

	_, err := kv.Get(ctx, keys.Secret)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCapture_StatusReadsBlobSealedUnderFallbackSecret(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	c := NewCapture(kv, keys, fastSuite(), nil)
	c.EnqueueSecure(ctx, event("emp-1", "2024-01-01T08:00:00Z"), queue.WithSecret(secret.FallbackSecret))

	st := c.Status(ctx)
	require.False(t, st.SecretProvisioned)
	require.True(t, st.SecureReadable)
	require.Equal(t, 1, st.Secure)

	_, err := kv.Get(ctx, keys.Secret)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

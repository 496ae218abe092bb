package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/capture-queue/internal/errs"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := New()
	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'x'

	out, _ := s.Get(ctx, "k")
	require.Equal(t, []byte("abc"), out)
	out[0] = 'y'

	again, _ := s.Get(ctx, "k")
	require.Equal(t, []byte("abc"), again)
}

// Package storagetest provides storage.Store doubles for tests.
package storagetest

import (
	"context"
	"errors"
	"sync"

	"github.com/and161185/capture-queue/internal/storage"
	"github.com/and161185/capture-queue/internal/storage/memory"
)

// ErrInjected is returned by Faulty when a failure is armed.
var ErrInjected = errors.New("injected storage failure")

// Faulty wraps an in-memory store and fails or panics on demand, optionally per key.
type Faulty struct {
	*memory.Store

	mu        sync.Mutex
	failGet   map[string]bool
	failSet   map[string]bool
	failDel   map[string]bool
	panicking bool
	calls     int
}

var _ storage.Store = (*Faulty)(nil)

// NewFaulty returns a healthy store.
func NewFaulty() *Faulty {
	return &Faulty{
		Store:   memory.New(),
		failGet: map[string]bool{},
		failSet: map[string]bool{},
		failDel: map[string]bool{},
	}
}

// All matches every key in the Fail* helpers.
const All = "*"

func (f *Faulty) FailGet(key string) *Faulty { f.arm(f.failGet, key); return f }
func (f *Faulty) FailSet(key string) *Faulty { f.arm(f.failSet, key); return f }
func (f *Faulty) FailDelete(key string) *Faulty { f.arm(f.failDel, key); return f }

// Panic makes every subsequent call panic.
func (f *Faulty) Panic() *Faulty {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panicking = true
	return f
}

// Heal disarms every failure.
func (f *Faulty) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet, f.failSet, f.failDel = map[string]bool{}, map[string]bool{}, map[string]bool{}
	f.panicking = false
}

// Calls reports how many Get/Set/Delete calls reached the store.
func (f *Faulty) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Faulty) arm(m map[string]bool, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m[key] = true
}

func (f *Faulty) check(m map[string]bool, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicking {
		panic("storagetest: backend exploded")
	}
	if m[key] || m[All] {
		return ErrInjected
	}
	return nil
}

func (f *Faulty) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.check(f.failGet, key); err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, key)
}

func (f *Faulty) Set(ctx context.Context, key string, value []byte) error {
	if err := f.check(f.failSet, key); err != nil {
		return err
	}
	return f.Store.Set(ctx, key, value)
}

func (f *Faulty) Delete(ctx context.Context, key string) error {
	if err := f.check(f.failDel, key); err != nil {
		return err
	}
	return f.Store.Delete(ctx, key)
}

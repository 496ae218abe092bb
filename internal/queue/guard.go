package queue

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/and161185/capture-queue/internal/errs"
)

// guard runs fn and turns a panic raised by a storage backend or crypto suite into an error.
func guard(log *zap.Logger, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic",
				zap.Any("reason", r),
				zap.ByteString("stack", debug.Stack()),
				zap.String("op", op),
			)
			err = fmt.Errorf("%w: panic in %s: %v", errs.ErrStorageUnavailable, op, r)
		}
	}()
	return fn()
}

func storageErr(op, key string, err error) error {
	return fmt.Errorf("%w: %s slot[%s]: %w", errs.ErrStorageUnavailable, op, key, err)
}

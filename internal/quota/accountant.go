// Package quota applies share counter updates as blind atomic increments.
package quota

import (
	"Go_Share/internal/repo"
	"context"
	"fmt"
	"time"
)

type Accountant struct {
	store   repo.ShareStore
	timeout time.Duration
}

// NewAccountant builds an Accountant whose store calls are bounded by timeout.
func NewAccountant(store repo.ShareStore, timeout time.Duration) *Accountant {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Accountant{store: store, timeout: timeout}
}

// RecordUpload adds one upload and deltaBytes to the share in one store operation.
func (a *Accountant) RecordUpload(ctx context.Context, shareID string, deltaBytes int64) error {
	if deltaBytes < 0 {
		return fmt.Errorf("negative upload size %d", deltaBytes)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.store.AddUpload(ctx, shareID, deltaBytes); err != nil {
		return fmt.Errorf("record upload for share %s: %w", shareID, err)
	}
	return nil
}

// RecordAccess counts one satisfied access.
func (a *Accountant) RecordAccess(ctx context.Context, shareID string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.store.IncrementAccess(ctx, shareID); err != nil {
		return fmt.Errorf("record access for share %s: %w", shareID, err)
	}
	return nil
}

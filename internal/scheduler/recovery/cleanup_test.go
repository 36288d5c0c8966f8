package recovery

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRetentionStore struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeRetentionStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestCleanupUsesRetentionCutoff(t *testing.T) {
	t.Parallel()

	store := &fakeRetentionStore{deleted: 12}
	c := NewCleanup(store, 30)

	before := time.Now().AddDate(0, 0, -30)
	c.CleanupOnce(context.Background())
	after := time.Now().AddDate(0, 0, -30)

	if store.cutoff.Before(before) || store.cutoff.After(after) {
		t.Fatalf("cutoff = %v, want about 30 days ago", store.cutoff)
	}
}

func TestCleanupStoreErrorIsNonFatal(t *testing.T) {
	t.Parallel()

	store := &fakeRetentionStore{err: errors.New("db down")}
	c := NewCleanup(store, 7)

	// Must not panic; the next interval retries.
	c.CleanupOnce(context.Background())
}

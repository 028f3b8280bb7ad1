package domain

import (
	"context"
	"time"
)

// TxManager runs fn inside one atomic storage transaction. Repositories
// called with the ctx passed to fn join that transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MemberLocker serializes work on a single member across check-in workers.
// Lock blocks until the lock is held or ctx is done and returns the release
// function.
type MemberLocker interface {
	Lock(ctx context.Context, memberID string, ttl time.Duration) (unlock func(), err error)
}

package service

import (
	"context"
	"sync"
	"time"

	dErrors "medleave/pkg/domain-errors"

	"medleave/internal/leave"
)

// StoreTx provides the transactional boundary for request mutations.
// Implementations may wrap a database transaction or, in-memory, a sharded
// lock. Validation and the subsequent insert/update must run inside one
// RunInTx call so check-then-act races cannot slip through.
//
// fn receives a derived context; store and audit calls inside the unit of
// work must use it, because the database implementation threads the open
// transaction through it.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store leave.Store) error) error
}

// numShards spreads lock contention across students/requests. Operations on
// the same shard key serialize; unrelated keys proceed in parallel.
const numShards = 128

// defaultTxTimeout bounds a single unit of work. A client timeout does not
// abort the server-side transaction, but nothing may hold a shard forever.
const defaultTxTimeout = 5 * time.Second

type shardKeyCtx struct{}

// WithShardKey tags the context with the serialization key for the in-memory
// transaction boundary: the student id on submit, the request id on decide.
func WithShardKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, shardKeyCtx{}, key)
}

// ShardedTx serializes units of work per shard against an in-memory store.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	store   leave.Store
	timeout time.Duration
}

func NewShardedTx(store leave.Store) *ShardedTx {
	return &ShardedTx{store: store}
}

func (t *ShardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store leave.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

func (t *ShardedTx) selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(shardKeyCtx{}).(string); ok && key != "" {
		return int(fnvHash(key) % numShards)
	}
	return 0
}

// fnvHash is FNV-1a, chosen for its distribution over short UUID strings.
func fnvHash(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

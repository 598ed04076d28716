package idempotency

import (
	"context"
	"sync"
	"testing"

	"github.com/betflow/betflow-api/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeys mimics the idempotency_keys table.
type fakeKeys struct {
	mu   sync.Mutex
	rows map[string]repository.IdempotencyKey
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{rows: map[string]repository.IdempotencyKey{}}
}

func (f *fakeKeys) GetIdempotencyKey(ctx context.Context, key string) (repository.IdempotencyKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[key]
	if !ok {
		return repository.IdempotencyKey{}, pgx.ErrNoRows
	}
	return row, nil
}

func (f *fakeKeys) ReserveIdempotencyKey(ctx context.Context, arg repository.ReserveIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.rows[arg.IdempotencyKey]; taken {
		return repository.IdempotencyKey{}, pgx.ErrNoRows
	}
	row := repository.IdempotencyKey{IdempotencyKey: arg.IdempotencyKey, RequestHash: arg.RequestHash, InProgress: true}
	f.rows[arg.IdempotencyKey] = row
	return row, nil
}

func (f *fakeKeys) FinalizeIdempotencyKey(ctx context.Context, arg repository.FinalizeIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[arg.IdempotencyKey]
	if !ok || row.RequestHash != arg.RequestHash {
		return repository.IdempotencyKey{}, pgx.ErrNoRows
	}
	row.InProgress = false
	row.ResponseStatus = arg.ResponseStatus
	row.ResponseBody = arg.ResponseBody
	row.ContentType = arg.ContentType
	f.rows[arg.IdempotencyKey] = row
	return row, nil
}

func (f *fakeKeys) ReleaseIdempotencyKey(ctx context.Context, key, requestHash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[key]
	if !ok || row.RequestHash != requestHash || !row.InProgress {
		return 0, nil
	}
	delete(f.rows, key)
	return 1, nil
}

func TestReserveFinalizeLookup(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, newFakeKeys(), 0)
	key := ScopedKey("user-1", "abc")

	_, err := store.Lookup(ctx, key, "h1")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := store.Reserve(ctx, key, "h1", "POST", "/v1/deposits")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.Lookup(ctx, key, "h1")
	assert.ErrorIs(t, err, ErrInProgress)

	ok, err = store.Reserve(ctx, key, "h1", "POST", "/v1/deposits")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Finalize(ctx, key, "h1", 201, []byte(`{"ok":true}`), "application/json")
	require.NoError(t, err)

	rec, err := store.Lookup(ctx, key, "h1")
	require.NoError(t, err)
	assert.Equal(t, 201, rec.Status)
	assert.Equal(t, "postgres", rec.ServedBy)

	_, err = store.Lookup(ctx, key, "h2")
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, newFakeKeys(), 0)

	ok, err := store.Reserve(ctx, "k", "h", "POST", "/v1/bets")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "k", "h"))

	ok, err = store.Reserve(ctx, "k", "h", "POST", "/v1/bets")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWaitForCompletionHonorsContext(t *testing.T) {
	store := NewStore(nil, newFakeKeys(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := store.Reserve(ctx, "k", "h", "POST", "/x")
	require.NoError(t, err)
	cancel()

	_, err = store.WaitForCompletion(ctx, "k", "h")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScopedKey(t *testing.T) {
	assert.Equal(t, "u:k", ScopedKey("u", "k"))
	assert.Equal(t, "anonymous:k", ScopedKey("", "k"))
}

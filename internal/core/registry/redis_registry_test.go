package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func sampleRecord(userID, documentID string) models.DocumentRecord {
	return models.DocumentRecord{
		DocumentID:   documentID,
		UserID:       userID,
		Filename:     "notes.pdf",
		FileType:     "pdf",
		FileHash:     "abc123",
		TotalChunks:  4,
		StoredChunks: 4,
		Status:       models.StatusSuccess,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestRedisRegistryPutGet(t *testing.T) {
	reg := NewRedisRegistry(newTestClient(t))
	ctx := context.Background()

	rec := sampleRecord("u1", "doc_u1_100")
	require.NoError(t, reg.Put(ctx, rec))

	got, err := reg.Get(ctx, "u1", "doc_u1_100")
	require.NoError(t, err)
	assert.Equal(t, rec.Filename, got.Filename)
	assert.Equal(t, rec.FileHash, got.FileHash)
	assert.Equal(t, rec.StoredChunks, got.StoredChunks)
}

func TestRedisRegistryGetMissing(t *testing.T) {
	reg := NewRedisRegistry(newTestClient(t))

	_, err := reg.Get(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRedisRegistryList(t *testing.T) {
	reg := NewRedisRegistry(newTestClient(t))
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, sampleRecord("u1", "doc_u1_1")))
	require.NoError(t, reg.Put(ctx, sampleRecord("u1", "doc_u1_2")))
	require.NoError(t, reg.Put(ctx, sampleRecord("u2", "doc_u2_1")))

	records, err := reg.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "u1", rec.UserID)
	}

	empty, err := reg.List(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisRegistryDelete(t *testing.T) {
	reg := NewRedisRegistry(newTestClient(t))
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, sampleRecord("u1", "doc_u1_1")))
	require.NoError(t, reg.Delete(ctx, "u1", "doc_u1_1"))

	_, err := reg.Get(ctx, "u1", "doc_u1_1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, reg.Delete(ctx, "u1", "doc_u1_1"), core.ErrNotFound)
}

func TestRedisRegistryExists(t *testing.T) {
	reg := NewRedisRegistry(newTestClient(t))
	ctx := context.Background()

	ok, err := reg.Exists(ctx, "u1", "doc_u1_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, reg.Put(ctx, sampleRecord("u1", "doc_u1_1")))

	ok, err = reg.Exists(ctx, "u1", "doc_u1_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRegistryDeleteUser(t *testing.T) {
	reg := NewRedisRegistry(newTestClient(t))
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, sampleRecord("u1", "doc_u1_1")))
	require.NoError(t, reg.Put(ctx, sampleRecord("u1", "doc_u1_2")))
	require.NoError(t, reg.Put(ctx, sampleRecord("u2", "doc_u2_1")))

	require.NoError(t, reg.DeleteUser(ctx, "u1"))

	records, err := reg.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)

	others, err := reg.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestRedisUserStoreCreateAndFetch(t *testing.T) {
	store := NewRedisUserStore(newTestClient(t))
	ctx := context.Background()

	user := models.User{ID: "u1", Email: "dave@example.com", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(ctx, user))

	got, err := store.GetUserByEmail(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	assert.ErrorIs(t, store.CreateUser(ctx, user), core.ErrAlreadyExists)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

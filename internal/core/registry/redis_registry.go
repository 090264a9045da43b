package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

var _ core.DocumentRegistry = (*RedisRegistry)(nil)

const (
	docPrefix     = "doc:"
	docUserPrefix = "doc:user:"
)

// RedisRegistry implements core.DocumentRegistry on Redis. Records are JSON
// values keyed doc:{user}:{document}; a per-user set indexes the ids so List
// and DeleteUser stay O(documents of that user).
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func recordKey(userID, documentID string) string {
	return docPrefix + userID + ":" + documentID
}

func (r *RedisRegistry) Put(ctx context.Context, rec models.DocumentRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal document record: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, recordKey(rec.UserID, rec.DocumentID), data, 0)
	pipe.SAdd(ctx, docUserPrefix+rec.UserID, rec.DocumentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save document record: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, userID, documentID string) (*models.DocumentRecord, error) {
	data, err := r.client.Get(ctx, recordKey(userID, documentID)).Bytes()
	if err == redis.Nil {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document record: %w", err)
	}

	var rec models.DocumentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal document record: %w", err)
	}
	return &rec, nil
}

func (r *RedisRegistry) List(ctx context.Context, userID string) ([]models.DocumentRecord, error) {
	ids, err := r.client.SMembers(ctx, docUserPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("list document ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(userID, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch document records: %w", err)
	}

	out := make([]models.DocumentRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // id in the index but record gone; skip
		}
		var rec models.DocumentRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, userID, documentID string) error {
	pipe := r.client.Pipeline()
	del := pipe.Del(ctx, recordKey(userID, documentID))
	pipe.SRem(ctx, docUserPrefix+userID, documentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	if del.Val() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *RedisRegistry) Exists(ctx context.Context, userID, documentID string) (bool, error) {
	n, err := r.client.Exists(ctx, recordKey(userID, documentID)).Result()
	if err != nil {
		return false, fmt.Errorf("check document record: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRegistry) DeleteUser(ctx context.Context, userID string) error {
	ids, err := r.client.SMembers(ctx, docUserPrefix+userID).Result()
	if err != nil {
		return fmt.Errorf("list document ids: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, recordKey(userID, id))
	}
	pipe.Del(ctx, docUserPrefix+userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete user documents: %w", err)
	}
	return nil
}

package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

var _ core.UserStore = (*RedisUserStore)(nil)

const userEmailPrefix = "user:email:"

// RedisUserStore keeps user accounts as JSON values keyed by email.
type RedisUserStore struct {
	client *redis.Client
}

func NewRedisUserStore(client *redis.Client) *RedisUserStore {
	return &RedisUserStore{client: client}
}

func (s *RedisUserStore) CreateUser(ctx context.Context, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	ok, err := s.client.SetNX(ctx, userEmailPrefix+user.Email, data, 0).Result()
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if !ok {
		return core.ErrAlreadyExists
	}
	return nil
}

func (s *RedisUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	data, err := s.client.Get(ctx, userEmailPrefix+email).Bytes()
	if err == redis.Nil {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

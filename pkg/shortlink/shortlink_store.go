package shortlink

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

type (
	// Store maps short codes to recipe ids and back. Entries never expire;
	// a link printed on paper should keep resolving.
	Store interface {
		GetRecipeID(ctx context.Context, code string) (string, error)
		GetCode(ctx context.Context, recipeID string) (string, error)
		Set(ctx context.Context, code, recipeID string) error
	}

	redisStore struct {
		client *redis.Client
	}
)

var ErrNotFound = errors.New("short link not found")

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) GetRecipeID(ctx context.Context, code string) (string, error) {
	val, err := s.client.Get(ctx, "shortlink:code:"+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (s *redisStore) GetCode(ctx context.Context, recipeID string) (string, error) {
	val, err := s.client.Get(ctx, "shortlink:recipe:"+recipeID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (s *redisStore) Set(ctx context.Context, code, recipeID string) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, "shortlink:code:"+code, recipeID, 0)
	pipe.Set(ctx, "shortlink:recipe:"+recipeID, code, 0)
	_, err := pipe.Exec(ctx)
	return err
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"molecule/internal/listmodule/models"
	"molecule/pkg/platform/sentinel"
)

const (
	listsKey         = "molecule:lists"
	membersKeyPrefix = "molecule:list:"
)

// RedisStore keeps each list's members in a Redis set and list metadata in
// a hash keyed by list address.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type listInfoJSON struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func membersKey(list common.Address) string {
	return membersKeyPrefix + list.Hex() + ":members"
}

func (s *RedisStore) CreateList(ctx context.Context, info models.ListInfo) error {
	payload, err := json.Marshal(listInfoJSON{Name: info.Name, CreatedAt: info.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal list info: %w", err)
	}
	created, err := s.client.HSetNX(ctx, listsKey, info.Ref.Hex(), payload).Result()
	if err != nil {
		return fmt.Errorf("create list: %w", err)
	}
	if !created {
		return fmt.Errorf("list %s: %w", info.Ref.Hex(), sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) ListLists(ctx context.Context) ([]models.ListInfo, error) {
	raw, err := s.client.HGetAll(ctx, listsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}
	out := make([]models.ListInfo, 0, len(raw))
	for ref, payload := range raw {
		var info listInfoJSON
		if err := json.Unmarshal([]byte(payload), &info); err != nil {
			return nil, fmt.Errorf("decode list %s: %w", ref, err)
		}
		out = append(out, models.ListInfo{
			Ref:       common.HexToAddress(ref),
			Name:      info.Name,
			CreatedAt: info.CreatedAt,
		})
	}
	sortInfos(out)
	return out, nil
}

// AddMembers writes the batch in one MULTI/EXEC so it applies atomically.
func (s *RedisStore) AddMembers(ctx context.Context, list common.Address, addrs []common.Address) error {
	if len(addrs) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, membersKey(list), hexMembers(addrs)...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("add list members: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveMembers(ctx context.Context, list common.Address, addrs []common.Address) error {
	if len(addrs) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, membersKey(list), hexMembers(addrs)...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove list members: %w", err)
	}
	return nil
}

func (s *RedisStore) Members(ctx context.Context, list common.Address) ([]common.Address, error) {
	raw, err := s.client.SMembers(ctx, membersKey(list)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load list members: %w", err)
	}
	return parseMembers(raw)
}

func hexMembers(addrs []common.Address) []any {
	out := make([]any, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

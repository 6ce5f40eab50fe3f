package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bondtrader/internal/config"
	"bondtrader/internal/domain/entity/purchases"
)

// Redis keeps the last deal under a single key so it survives restarts.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, key: cfg.Key}, nil
}

func (r *Redis) RecordPurchase(ctx context.Context, purchase *purchases.Purchase) error {
	if purchase == nil {
		return ErrNilPurchase
	}
	payload, err := encodeDeal(purchases.DealOf(*purchase))
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("store last deal: %w", err)
	}
	return nil
}

// LastDeal returns nil when nothing has been bought yet.
func (r *Redis) LastDeal(ctx context.Context) (*purchases.Deal, error) {
	payload, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last deal: %w", err)
	}
	return decodeDeal(payload)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func encodeDeal(deal purchases.Deal) ([]byte, error) {
	payload, err := json.Marshal(deal)
	if err != nil {
		return nil, fmt.Errorf("marshal last deal: %w", err)
	}
	return payload, nil
}

func decodeDeal(payload []byte) (*purchases.Deal, error) {
	var deal purchases.Deal
	if err := json.Unmarshal(payload, &deal); err != nil {
		return nil, fmt.Errorf("unmarshal last deal: %w", err)
	}
	return &deal, nil
}

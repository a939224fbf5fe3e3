package service

import (
	"context"
	"strconv"
	"time"

	"options_analyzer/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Cache stores last prices and close histories between runs.
type Cache interface {
	GetPrice(ctx context.Context, ticker string) (float64, error)
	SetPrice(ctx context.Context, ticker string, price float64) error
	GetCloses(ctx context.Context, ticker string, start, end time.Time) ([]models.Close, error)
	SetCloses(ctx context.Context, ticker string, start, end time.Time, closes []models.Close) error
}

// RedisCache implements Cache on top of go-redis.
type RedisCache struct {
	client     redis.UniversalClient
	priceTTL   time.Duration
	historyTTL time.Duration
}

func NewRedisCache(client redis.UniversalClient, priceTTL, historyTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		priceTTL:   priceTTL,
		historyTTL: historyTTL,
	}
}

func (r *RedisCache) GetPrice(ctx context.Context, ticker string) (float64, error) {
	raw, err := r.client.HGet(ctx, priceKey(ticker), "price").Result()
	if err == redis.Nil {
		return 0, errors.Wrapf(models.ErrNotFound, "price %s", ticker)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "redis get price %s", ticker)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse cached price %s", ticker)
	}
	return v, nil
}

func (r *RedisCache) SetPrice(ctx context.Context, ticker string, price float64) error {
	key := priceKey(ticker)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key,
		"price", strconv.FormatFloat(price, 'f', -1, 64),
		"ts", time.Now().Unix(),
	)
	if r.priceTTL > 0 {
		pipe.Expire(ctx, key, r.priceTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "redis set price %s", ticker)
	}
	return nil
}

func (r *RedisCache) GetCloses(ctx context.Context, ticker string, start, end time.Time) ([]models.Close, error) {
	data, err := r.client.Get(ctx, closesKey(ticker, start, end)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(models.ErrNotFound, "closes %s", ticker)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get closes %s", ticker)
	}

	var closes []models.Close
	if err := sonic.Unmarshal(data, &closes); err != nil {
		return nil, errors.Wrapf(err, "unmarshal cached closes %s", ticker)
	}
	return closes, nil
}

func (r *RedisCache) SetCloses(ctx context.Context, ticker string, start, end time.Time, closes []models.Close) error {
	data, err := sonic.Marshal(closes)
	if err != nil {
		return errors.Wrapf(err, "marshal closes %s", ticker)
	}
	if err := r.client.Set(ctx, closesKey(ticker, start, end), data, r.historyTTL).Err(); err != nil {
		return errors.Wrapf(err, "redis set closes %s", ticker)
	}
	return nil
}

func priceKey(ticker string) string {
	return "oa:price:" + ticker
}

func closesKey(ticker string, start, end time.Time) string {
	return "oa:closes:" + ticker + ":" + start.Format("20060102") + ":" + end.Format("20060102")
}

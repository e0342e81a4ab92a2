package uid

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisOptions Redis 序列配置
type RedisOptions struct {
	Addr     string        `cfg:"addr" def:"localhost:6379"`
	Password string        `cfg:"password"`
	DB       int           `cfg:"db"`
	Key      string        `cfg:"key" def:"ormx:sequence"`
	Timeout  time.Duration `cfg:"timeout" def:"3s"`
}

// RedisGenerator 以 Redis INCR 实现的跨进程主键序列，值从 1 开始连续递增
type RedisGenerator struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

func NewRedisGeneratorWithOptions(options *RedisOptions) (*RedisGenerator, error) {
	if options == nil {
		options = &RedisOptions{}
	}
	if options.Addr == "" {
		options.Addr = "localhost:6379"
	}
	if options.Key == "" {
		options.Key = "ormx:sequence"
	}
	if options.Timeout == 0 {
		options.Timeout = 3 * time.Second
	}

	return &RedisGenerator{
		client: redis.NewClient(&redis.Options{
			Addr:     options.Addr,
			Password: options.Password,
			DB:       options.DB,
		}),
		key:     options.Key,
		timeout: options.Timeout,
	}, nil
}

func (g *RedisGenerator) Generate(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	n, err := g.client.Incr(ctx, g.key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redis incr %s failed", g.key)
	}
	return n, nil
}

func (g *RedisGenerator) Close() error {
	return g.client.Close()
}

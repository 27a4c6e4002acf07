package redis

import (
	radix "github.com/mediocregopher/radix/v3"

	"github.com/example/goshop/internal/config"
)

// Open 创建 Redis 连接池
func Open(cfg *config.RedisConfig) (radix.Client, error) {
	size := cfg.PoolSize
	if size <= 0 {
		size = 10
	}
	return radix.NewPool("tcp", cfg.Addr, size)
}

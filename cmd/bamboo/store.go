package main

import (
	"github.com/TencentBlueKing/bamboo-engine-sub001"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/adapters/memory"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/adapters/redis"
	"github.com/spf13/cobra"
)

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis-addr", "", "Redis address for the pipeline store (in-memory when empty)")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database")
	cmd.Flags().String("redis-prefix", redis.DefaultPrefix, "Key prefix for stored pipelines")
	cmd.Flags().String("redis-lock-prefix", "bamboo:lock:", "Key prefix for pipeline locks")
	cmd.Flags().Duration("redis-ttl", 0, "Expiration of stored pipelines (0 keeps them)")
}

// storeOptions wires a Redis store and locker when --redis-addr is set and
// falls back to the in-memory adapters otherwise. The returned func closes
// the Redis client.
func storeOptions(cmd *cobra.Command) ([]bamboo.Option, func() error) {
	addr, _ := cmd.Flags().GetString("redis-addr")
	if addr == "" {
		return []bamboo.Option{
			bamboo.WithStore(memory.NewStore()),
			bamboo.WithLocker(memory.NewLocker()),
		}, func() error { return nil }
	}

	password, _ := cmd.Flags().GetString("redis-password")
	db, _ := cmd.Flags().GetInt("redis-db")
	prefix, _ := cmd.Flags().GetString("redis-prefix")
	lockPrefix, _ := cmd.Flags().GetString("redis-lock-prefix")
	ttl, _ := cmd.Flags().GetDuration("redis-ttl")

	store := redis.New(addr, password, db, redis.WithPrefix(prefix), redis.WithTTL(ttl))
	return []bamboo.Option{
		bamboo.WithStore(store),
		bamboo.WithLocker(redis.NewLocker(store.Client(), lockPrefix)),
	}, store.Close
}

// Package cache implementa inventory.StockCache sobre Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/pkg/config"
	"github.com/jhoicas/inventrack-api/pkg/logger"
)

var _ inventory.StockCache = (*RedisStockCache)(nil)

const (
	keyPrefix = "inventrack:stock:"
	genPrefix = "inventrack:stock-gen:"
)

// errStale el resumen se calculó antes de la última invalidación.
var errStale = errors.New("resumen desactualizado")

// RedisStockCache guarda el resumen de existencias de cada producto como JSON con TTL.
// La generación de cada producto es un contador sin TTL; Set la vigila con WATCH.
// Un fallo de Redis nunca afecta al movimiento: Get devuelve miss y el resto devuelve el error para log.
type RedisStockCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewClient crea el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisStockCache construye la caché. ttl <= 0 usa 30s.
func NewRedisStockCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisStockCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStockCache{client: client, ttl: ttl, log: log.Component("stock_cache")}
}

// Key clave Redis del resumen de un producto.
func Key(productID int64) string {
	return keyPrefix + strconv.FormatInt(productID, 10)
}

// GenerationKey clave Redis del contador de invalidaciones de un producto.
func GenerationKey(productID int64) string {
	return genPrefix + strconv.FormatInt(productID, 10)
}

func (c *RedisStockCache) Get(ctx context.Context, productID int64) (*inventory.StockSummary, bool) {
	data, err := c.client.Get(ctx, Key(productID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Int64("product_id", productID).Msg("leer caché de stock")
		}
		return nil, false
	}
	var s inventory.StockSummary
	if err := json.Unmarshal(data, &s); err != nil {
		c.log.Warn().Err(err).Int64("product_id", productID).Msg("resumen en caché corrupto")
		return nil, false
	}
	return &s, true
}

func (c *RedisStockCache) Generation(ctx context.Context, productID int64) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generación: %w", err)
	}
	return gen, nil
}

// Set escribe el resumen en una transacción vigilada sobre la generación. Si cambió desde gen,
// o cambia antes del EXEC, no escribe nada y no es un error.
func (c *RedisStockCache) Set(ctx context.Context, summary *inventory.StockSummary, gen int64) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("codificar resumen: %w", err)
	}
	genKey := GenerationKey(summary.ProductID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, Key(summary.ProductID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.Debug().Int64("product_id", summary.ProductID).Int64("gen", gen).Msg("resumen descartado por invalidación concurrente")
		return nil
	}
	return fmt.Errorf("redis set: %w", err)
}

// Invalidate incrementa la generación y borra el resumen en un solo MULTI.
func (c *RedisStockCache) Invalidate(ctx context.Context, productID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(productID))
		pipe.Del(ctx, Key(productID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidar: %w", err)
	}
	return nil
}

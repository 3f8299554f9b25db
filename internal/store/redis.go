package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/folio/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const maxTxRetries = 5

// ConnectRedis parses a redis URL and checks the connection
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisCollection stores each post as a JSON string with side keys:
//
//	<prefix>post:<id>       document JSON
//	<prefix>slug:<slug>     id of the post that claimed the slug
//	<prefix>posts           set of all ids
//	<prefix>idx:published   zset of published ids scored by publish time
//	<prefix>idx:updated     zset of ids scored by update time
//
// Writes run in WATCH/MULTI transactions so a slug can only be claimed by one post.
type RedisCollection struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

var _ Collection = (*RedisCollection)(nil)

func NewRedisCollection(client *redis.Client, prefix string) *RedisCollection {
	return &RedisCollection{
		client: client,
		prefix: prefix,
		log:    zerolog.Nop(),
	}
}

// WithLogger sets the logger that reports skipped documents
func (c *RedisCollection) WithLogger(log zerolog.Logger) *RedisCollection {
	c.log = log
	return c
}

func (c *RedisCollection) docKey(id string) string { return c.prefix + "post:" + id }
func (c *RedisCollection) slugKey(s string) string { return c.prefix + "slug:" + s }
func (c *RedisCollection) idsKey() string          { return c.prefix + "posts" }
func (c *RedisCollection) publishedKey() string    { return c.prefix + "idx:published" }
func (c *RedisCollection) updatedKey() string      { return c.prefix + "idx:updated" }

func (c *RedisCollection) Close() error {
	return c.client.Close()
}

func (c *RedisCollection) NewID() string {
	return uuid.NewString()
}

func (c *RedisCollection) Get(ctx context.Context, id string) (*Document, error) {
	raw, err := c.client.Get(ctx, c.docKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return Decode(id, raw)
}

func (c *RedisCollection) FindBySlug(ctx context.Context, slug string) ([]*Document, error) {
	id, err := c.client.Get(ctx, c.slugKey(slug)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	doc, err := c.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// the claim outlived a slug change that did not clean up
	if doc.Slug != slug {
		return nil, nil
	}
	return []*Document{doc}, nil
}

func (c *RedisCollection) Insert(ctx context.Context, doc *Document) error {
	return c.write(ctx, doc, true)
}

func (c *RedisCollection) Replace(ctx context.Context, doc *Document) error {
	return c.write(ctx, doc, false)
}

func (c *RedisCollection) write(ctx context.Context, doc *Document, insert bool) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	docKey, slugKey := c.docKey(doc.ID), c.slugKey(doc.Slug)

	txf := func(tx *redis.Tx) error {
		var previous *Document
		raw, err := tx.Get(ctx, docKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if !insert {
				return ErrNotFound
			}
		case err != nil:
			return err
		default:
			if insert {
				return fmt.Errorf("document %s already exists", doc.ID)
			}
			// an unreadable previous version is simply overwritten
			previous, _ = Decode(doc.ID, raw)
		}

		owner, err := tx.Get(ctx, slugKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && owner != doc.ID {
			live, err := c.claimIsLive(ctx, tx, owner, doc.Slug)
			if err != nil {
				return err
			}
			if live {
				return ErrSlugTaken
			}
		}

		var releaseKey string
		if previous != nil && previous.Slug != doc.Slug {
			oldKey := c.slugKey(previous.Slug)
			if err := tx.Watch(ctx, oldKey).Err(); err != nil {
				return err
			}
			if held, _ := tx.Get(ctx, oldKey).Result(); held == doc.ID {
				releaseKey = oldKey
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, data, 0)
			pipe.Set(ctx, slugKey, doc.ID, 0)
			if releaseKey != "" {
				pipe.Del(ctx, releaseKey)
			}
			pipe.SAdd(ctx, c.idsKey(), doc.ID)
			c.stageIndexes(ctx, pipe, doc)
			return nil
		})
		return err
	}

	return c.watch(ctx, txf, docKey, slugKey)
}

// claimIsLive reports whether owner still carries slug
func (c *RedisCollection) claimIsLive(ctx context.Context, tx *redis.Tx, owner, slug string) (bool, error) {
	raw, err := tx.Get(ctx, c.docKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	doc, err := Decode(owner, raw)
	if err != nil {
		return true, nil
	}
	return doc.Slug == slug, nil
}

func (c *RedisCollection) stageIndexes(ctx context.Context, pipe redis.Pipeliner, doc *Document) {
	if doc.UpdatedAt != nil {
		pipe.ZAdd(ctx, c.updatedKey(), redis.Z{Score: float64(*doc.UpdatedAt), Member: doc.ID})
	} else {
		pipe.ZRem(ctx, c.updatedKey(), doc.ID)
	}

	if doc.IsPublished && doc.PublishedAt != nil {
		pipe.ZAdd(ctx, c.publishedKey(), redis.Z{Score: float64(*doc.PublishedAt), Member: doc.ID})
	} else {
		pipe.ZRem(ctx, c.publishedKey(), doc.ID)
	}
}

func (c *RedisCollection) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := c.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction on %v kept conflicting: %w", keys, redis.TxFailedErr)
}

func (c *RedisCollection) Delete(ctx context.Context, id string) error {
	docKey := c.docKey(id)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, docKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var releaseKey string
		if doc, err := Decode(id, raw); err == nil {
			key := c.slugKey(doc.Slug)
			if err := tx.Watch(ctx, key).Err(); err != nil {
				return err
			}
			if held, _ := tx.Get(ctx, key).Result(); held == id {
				releaseKey = key
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, docKey)
			if releaseKey != "" {
				pipe.Del(ctx, releaseKey)
			}
			pipe.SRem(ctx, c.idsKey(), id)
			pipe.ZRem(ctx, c.publishedKey(), id)
			pipe.ZRem(ctx, c.updatedKey(), id)
			return nil
		})
		return err
	}

	return c.watch(ctx, txf, docKey)
}

func (c *RedisCollection) ListPublished(ctx context.Context) ([]*Document, error) {
	ids, err := c.client.ZRevRange(ctx, c.publishedKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange error: %w", err)
	}
	return c.getMany(ctx, ids)
}

func (c *RedisCollection) ListAll(ctx context.Context, order Order) ([]*Document, error) {
	if order == OrderNone {
		ids, err := c.client.SMembers(ctx, c.idsKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis smembers error: %w", err)
		}
		return c.getMany(ctx, ids)
	}

	total, err := c.client.SCard(ctx, c.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis scard error: %w", err)
	}
	indexed, err := c.client.ZCard(ctx, c.updatedKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zcard error: %w", err)
	}
	// documents without an update time are missing from the index
	if indexed < total {
		return nil, ErrOrderUnavailable
	}

	ids, err := c.client.ZRevRange(ctx, c.updatedKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange error: %w", err)
	}
	return c.getMany(ctx, ids)
}

func (c *RedisCollection) getMany(ctx context.Context, ids []string) ([]*Document, error) {
	if len(ids) == 0 {
		return []*Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.docKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget error: %w", err)
	}

	docs := make([]*Document, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// deleted between the index read and the fetch
			continue
		}
		doc, err := Decode(ids[i], []byte(s))
		var serr *models.SchemaError
		if errors.As(err, &serr) {
			c.log.Error().Err(err).Str("id", ids[i]).Msg("Skipping undecodable document")
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *RedisCollection) Increment(ctx context.Context, id, field string, delta int64) (int64, error) {
	if field != CounterViews && field != CounterLikes {
		return 0, fmt.Errorf("unknown counter %q", field)
	}

	docKey := c.docKey(id)
	var value int64

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, docKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		doc, err := Decode(id, raw)
		if err != nil {
			return err
		}

		value = bump(doc, field, delta)
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, docKey, data, 0)
			return nil
		})
		return err
	}

	if err := c.watch(ctx, txf, docKey); err != nil {
		return 0, err
	}
	return value, nil
}

// bump applies delta to a counter, never going below zero
func bump(doc *Document, field string, delta int64) int64 {
	target := &doc.Views
	if field == CounterLikes {
		target = &doc.Likes
	}
	*target += delta
	if *target < 0 {
		*target = 0
	}
	return *target
}

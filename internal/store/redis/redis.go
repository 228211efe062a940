// Package redis stores calendar documents in Redis hashes, one hash per
// collection with the document id as field and its JSON body as value.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/shared-calendar/internal/store"
)

// Store implements store.Port on top of a Redis client.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return New(client, prefix), nil
}

// New wraps an existing client. An empty prefix defaults to "calendar".
func New(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "calendar"
	}
	return &Store{client: client, prefix: prefix}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Key returns the hash key holding a collection.
func (s *Store) Key(collection string) string {
	return s.prefix + ":" + collection
}

// Select implements store.Port.
func (s *Store) Select(ctx context.Context, collection string, filter store.Filter) ([]store.Record, error) {
	key := s.Key(collection)
	if id, ok := filter.IDOnly(); ok {
		body, err := s.client.HGet(ctx, key, id).Result()
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("redis: hget %s: %w", key, err)
		}
		record, err := store.Decode([]byte(body))
		if err != nil {
			return nil, err
		}
		return []store.Record{record}, nil
	}

	all, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall %s: %w", key, err)
	}
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]store.Record, 0, len(ids))
	for _, id := range ids {
		record, err := store.Decode([]byte(all[id]))
		if err != nil {
			return nil, err
		}
		if filter.Match(record) {
			records = append(records, record)
		}
	}
	return records, nil
}

// Exists implements store.Port.
func (s *Store) Exists(ctx context.Context, collection string, filter store.Filter) (bool, error) {
	if id, ok := filter.IDOnly(); ok {
		found, err := s.client.HExists(ctx, s.Key(collection), id).Result()
		if err != nil {
			return false, fmt.Errorf("redis: hexists: %w", err)
		}
		return found, nil
	}
	records, err := s.Select(ctx, collection, filter)
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// Insert implements store.Port. HSETNX makes the duplicate check atomic.
func (s *Store) Insert(ctx context.Context, collection string, record store.Record) error {
	id, err := record.ID()
	if err != nil {
		return err
	}
	body, err := store.Encode(record)
	if err != nil {
		return err
	}
	created, err := s.client.HSetNX(ctx, s.Key(collection), id, string(body)).Result()
	if err != nil {
		return fmt.Errorf("redis: hsetnx: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: %s/%s", store.ErrDuplicate, collection, id)
	}
	return nil
}

// Update implements store.Port.
func (s *Store) Update(ctx context.Context, collection string, filter store.Filter, record store.Record) error {
	id, err := record.ID()
	if err != nil {
		return err
	}
	body, err := store.Encode(record)
	if err != nil {
		return err
	}
	matched, err := s.Select(ctx, collection, filter)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, collection)
	}
	for _, existing := range matched {
		existingID, _ := existing.ID()
		if existingID != id {
			return fmt.Errorf("%w: update of %s would change id to %s", store.ErrInvalidRecord, existingID, id)
		}
	}
	if err := s.client.HSet(ctx, s.Key(collection), id, string(body)).Err(); err != nil {
		return fmt.Errorf("redis: hset: %w", err)
	}
	return nil
}

// Delete implements store.Port.
func (s *Store) Delete(ctx context.Context, collection string, filter store.Filter) error {
	matched, err := s.Select(ctx, collection, filter)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, collection)
	}
	ids := make([]string, 0, len(matched))
	for _, record := range matched {
		id, _ := record.ID()
		ids = append(ids, id)
	}
	if err := s.client.HDel(ctx, s.Key(collection), ids...).Err(); err != nil {
		return fmt.Errorf("redis: hdel: %w", err)
	}
	return nil
}

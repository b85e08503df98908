// Package redisstore implements the record and template stores on redis.
// Records are JSON values keyed by id with a sorted-set index preserving
// first-insert order; all writes are upserts so concurrent writers are safe.
package redisstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/redis/go-redis/v9"

	"github.com/andrewwormald/notifier"
)

const (
	recordKeyPrefix   = "notifier:record:"
	recordIndexKey    = "notifier:records:index"
	templateKeyPrefix = "notifier:template:"
)

func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

type Store struct {
	client redis.UniversalClient
}

var _ notifier.RecordStore = (*Store)(nil)

func (s *Store) Store(ctx context.Context, r *notifier.Record) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		return s.upsert(ctx, p, *r)
	})
	if err != nil {
		return errors.Wrap(err, "store record", j.KV("record_id", r.ID))
	}

	return nil
}

func (s *Store) BatchStore(ctx context.Context, rs []notifier.Record) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, r := range rs {
			err := s.upsert(ctx, p, r)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "batch store records", j.KV("count", len(rs)))
	}

	return nil
}

func (s *Store) upsert(ctx context.Context, p redis.Pipeliner, r notifier.Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal record", j.KV("record_id", r.ID))
	}

	p.Set(ctx, recordKeyPrefix+r.ID, b, 0)

	// NX keeps the original insertion score so re-storing an id does not
	// reorder the listing.
	p.ZAddNX(ctx, recordIndexKey, redis.Z{
		Score:  float64(r.CreatedAt.UnixNano()),
		Member: r.ID,
	})

	return nil
}

func (s *Store) Lookup(ctx context.Context, id string) (*notifier.Record, error) {
	b, err := s.client.Get(ctx, recordKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(notifier.ErrRecordNotFound, id)
	} else if err != nil {
		return nil, errors.Wrap(err, "lookup record", j.KV("record_id", id))
	}

	var r notifier.Record
	err = json.Unmarshal(b, &r)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal record", j.KV("record_id", id))
	}

	return &r, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]notifier.Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := s.client.ZRange(ctx, recordIndexKey, 0, stop).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list record index")
	}

	var out []notifier.Record
	for _, id := range ids {
		r, err := s.Lookup(ctx, id)
		if errors.Is(err, notifier.ErrRecordNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}

		out = append(out, *r)
	}

	return out, nil
}

func NewTemplateStore(client redis.UniversalClient) *TemplateStore {
	return &TemplateStore{client: client}
}

type TemplateStore struct {
	client redis.UniversalClient
}

var _ notifier.TemplateStore = (*TemplateStore)(nil)

func (s *TemplateStore) ListKeys(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, templateKeyPrefix+"*").Result()
	if err != nil {
		return nil, errors.Wrap(err, "list template keys")
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, templateKeyPrefix))
	}

	return out, nil
}

func (s *TemplateStore) Get(ctx context.Context, key string) (string, error) {
	body, err := s.client.Get(ctx, templateKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errors.Wrap(notifier.ErrTemplateNotFound, key)
	} else if err != nil {
		return "", errors.Wrap(err, "get template", j.KV("key", key))
	}

	return body, nil
}

func (s *TemplateStore) Put(ctx context.Context, key string, body string) error {
	err := s.client.Set(ctx, templateKeyPrefix+key, body, 0).Err()
	if err != nil {
		return errors.Wrap(err, "put template", j.KV("key", key))
	}

	return nil
}

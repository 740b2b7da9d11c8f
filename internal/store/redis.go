package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

// Redis keeps each record as a JSON string under "<prefix>:<id>" and tracks
// the known ids in the set "<prefix>:ids".
type Redis[T Keyed] struct {
	client redis.Cmdable
	prefix string
}

func NewRedis[T Keyed](client redis.Cmdable, prefix string) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix}
}

func (r *Redis[T]) recordKey(id string) string { return r.prefix + ":" + id }

func (r *Redis[T]) indexKey() string { return r.prefix + ":ids" }

func (r *Redis[T]) FindByID(ctx context.Context, id string) (T, error) {
	var rec T
	data, err := r.client.Get(ctx, r.recordKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return rec, apperr.Errorf(apperr.ErrNotFound, "store.FindByID", id, "record not found: %s", id)
		}
		return rec, apperr.Wrap(err, "store.FindByID", id)
	}
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return rec, apperr.Wrap(err, "store.FindByID", id)
	}
	return rec, nil
}

func (r *Redis[T]) Save(ctx context.Context, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return apperr.Wrap(err, "store.Save", rec.Key())
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(rec.Key()), string(data), 0)
		pipe.SAdd(ctx, r.indexKey(), rec.Key())
		return nil
	})
	if err != nil {
		return apperr.Wrap(err, "store.Save", rec.Key())
	}
	return nil
}

func (r *Redis[T]) Delete(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, r.recordKey(id)).Result()
	if err != nil {
		return apperr.Wrap(err, "store.Delete", id)
	}
	if removed == 0 {
		return apperr.Errorf(apperr.ErrNotFound, "store.Delete", id, "record not found: %s", id)
	}
	return apperr.Wrap(r.client.SRem(ctx, r.indexKey(), id).Err(), "store.Delete", id)
}

func (r *Redis[T]) List(ctx context.Context) ([]T, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, apperr.Wrap(err, "store.List", r.prefix)
	}
	sort.Strings(ids)

	records := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, err := r.FindByID(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

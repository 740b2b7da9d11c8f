package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

// Redis stores the chain as a list of JSON entries under "<prefix>:log" and
// the last hash under "<prefix>:tail". Appends are serialized within the
// process; the chain is not shared between processes.
type Redis struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time

	mu sync.Mutex
}

func NewRedis(client redis.Cmdable, prefix string, opts ...Option) *Redis {
	o := buildOptions(opts)
	return &Redis{client: client, prefix: prefix, now: o.now}
}

func (r *Redis) logKey() string  { return r.prefix + ":log" }
func (r *Redis) tailKey() string { return r.prefix + ":tail" }

func (r *Redis) Append(ctx context.Context, e Entry) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, err := r.TailHash(ctx)
	if err != nil {
		return Entry{}, err
	}
	e = seal(e, prev, r.now)

	payload, err := json.Marshal(e)
	if err != nil {
		return Entry{}, apperr.Wrap(err, "audit.Append", e.EntityID)
	}
	// The entry and the new tail land together or not at all.
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.logKey(), string(payload))
		pipe.Set(ctx, r.tailKey(), e.Hash, 0)
		return nil
	})
	if err != nil {
		return Entry{}, apperr.Wrap(err, "audit.Append", e.EntityID)
	}
	return e, nil
}

func (r *Redis) TailHash(ctx context.Context) (string, error) {
	tail, err := r.client.Get(ctx, r.tailKey()).Result()
	if errors.Is(err, redis.Nil) {
		return Genesis, nil
	}
	if err != nil {
		return "", apperr.Wrap(err, "audit.TailHash", r.prefix)
	}
	return tail, nil
}

func (r *Redis) Entries(ctx context.Context) ([]Entry, error) {
	raw, err := r.client.LRange(ctx, r.logKey(), 0, -1).Result()
	if err != nil {
		return nil, apperr.Wrap(err, "audit.Entries", r.prefix)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, apperr.Wrap(err, "audit.Entries", r.prefix)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Redis) Verify(ctx context.Context) (bool, error) {
	entries, err := r.Entries(ctx)
	if err != nil {
		return false, err
	}
	return VerifyChain(entries), nil
}

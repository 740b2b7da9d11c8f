// Package audit keeps a tamper-evident log of successful mutations. Each
// entry carries the hash of its predecessor, so editing or dropping an entry
// breaks every hash after it.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Genesis is the previous hash of the first entry of a chain.
const Genesis = "GENESIS"

type Entry struct {
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Details    string    `json:"details"`
	Timestamp  time.Time `json:"timestamp"`
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
}

func (e Entry) ComputeHash() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		e.UserID,
		e.Role,
		e.Action,
		e.EntityType,
		e.EntityID,
		e.Details,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.PrevHash,
	}, "|")))
	return hex.EncodeToString(sum[:])
}

func (e Entry) String() string {
	short := e.Hash
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("[%s | %s (%s) | %s:%s | %s | hash=%s]",
		e.Timestamp.Format("15:04:05"), e.UserID, e.Role, e.Action, e.EntityType, e.Details, short)
}

// Sink appends entries to a chain. Append fills Timestamp when it is zero and
// always sets PrevHash and Hash.
type Sink interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	TailHash(ctx context.Context) (string, error)
}

type Option func(*sinkOptions)

type sinkOptions struct {
	now func() time.Time
}

func WithClock(now func() time.Time) Option {
	return func(o *sinkOptions) { o.now = now }
}

func buildOptions(opts []Option) sinkOptions {
	o := sinkOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func seal(e Entry, prev string, now func() time.Time) Entry {
	if e.Timestamp.IsZero() {
		e.Timestamp = now()
	}
	e.PrevHash = prev
	e.Hash = e.ComputeHash()
	return e
}

// VerifyChain reports whether every entry links to its predecessor and still
// matches its own hash.
func VerifyChain(entries []Entry) bool {
	prev := Genesis
	for _, e := range entries {
		if e.PrevHash != prev || e.ComputeHash() != e.Hash {
			return false
		}
		prev = e.Hash
	}
	return true
}

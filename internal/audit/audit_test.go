package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

var fixedNow = time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestMemory_ChainLinksEntries(t *testing.T) {
	sink := NewMemory(WithClock(fixedClock))
	ctx := context.Background()

	tail, err := sink.TailHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, Genesis, tail)

	first, err := sink.Append(ctx, Entry{UserID: "m1", Role: "MANAGER", Action: "RESTOCK", EntityType: "Inventory", EntityID: "flour", Details: "+10"})
	require.NoError(t, err)
	second, err := sink.Append(ctx, Entry{UserID: "w1", Role: "WAITER", Action: "PLACE_ORDER", EntityType: "Order", EntityID: "o1"})
	require.NoError(t, err)

	assert.Equal(t, Genesis, first.PrevHash)
	assert.Equal(t, first.Hash, second.PrevHash)
	assert.Equal(t, fixedNow, first.Timestamp)
	assert.Len(t, first.Hash, 64)
	assert.True(t, sink.Verify())

	tail, _ = sink.TailHash(ctx)
	assert.Equal(t, second.Hash, tail)
	assert.Contains(t, first.String(), "m1 (MANAGER) | RESTOCK:Inventory")
}

func TestMemory_VerifyDetectsTampering(t *testing.T) {
	sink := NewMemory()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := sink.Append(ctx, Entry{UserID: "c1", Action: "COOK", EntityID: "o1"})
		require.NoError(t, err)
	}

	entries := sink.Entries()
	require.True(t, VerifyChain(entries))

	entries[1].Details = "edited"
	assert.False(t, VerifyChain(entries))
}

func TestMemory_ConcurrentAppendsKeepChain(t *testing.T) {
	sink := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = sink.Append(ctx, Entry{UserID: "w", Action: "UPDATE"})
		}()
	}
	wg.Wait()

	assert.Len(t, sink.Entries(), 50)
	assert.True(t, sink.Verify())
}

func TestRedis_AppendFirstEntry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := NewRedis(db, "audit", WithClock(fixedClock))

	want := Entry{UserID: "m1", Role: "MANAGER", Action: "RESTOCK", EntityType: "Inventory", EntityID: "flour", Timestamp: fixedNow, PrevHash: Genesis}
	want.Hash = want.ComputeHash()
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet("audit:tail").RedisNil()
	mock.ExpectTxPipeline()
	mock.ExpectRPush("audit:log", string(payload)).SetVal(1)
	mock.ExpectSet("audit:tail", want.Hash, 0).SetVal("OK")
	mock.ExpectTxPipelineExec()

	got, err := sink.Append(context.Background(), Entry{UserID: "m1", Role: "MANAGER", Action: "RESTOCK", EntityType: "Inventory", EntityID: "flour"})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedis_AppendFailsWhenTailUnreadable(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := NewRedis(db, "audit")

	mock.ExpectGet("audit:tail").SetErr(errors.New("connection reset"))

	_, err := sink.Append(context.Background(), Entry{UserID: "m1"})
	assert.Error(t, err)
}

func TestRedis_AppendWritesEntryAndTailInOneTransaction(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := NewRedis(db, "audit", WithClock(fixedClock))

	want := Entry{UserID: "m1", Action: "RESTOCK", EntityID: "flour", Timestamp: fixedNow, PrevHash: Genesis}
	want.Hash = want.ComputeHash()
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet("audit:tail").RedisNil()
	mock.ExpectTxPipeline()
	mock.ExpectRPush("audit:log", string(payload)).SetVal(1)
	mock.ExpectSet("audit:tail", want.Hash, 0).SetErr(errors.New("connection reset"))

	_, err = sink.Append(context.Background(), Entry{UserID: "m1", Action: "RESTOCK", EntityID: "flour"})
	require.Error(t, err)
	assert.Equal(t, apperr.CategorySystem, apperr.CategoryOf(err))

	// Without EXEC the queued RPUSH is discarded, so the next append still
	// links to the old tail.
	mock.ExpectGet("audit:tail").RedisNil()
	mock.ExpectTxPipeline()
	mock.ExpectRPush("audit:log", string(payload)).SetVal(1)
	mock.ExpectSet("audit:tail", want.Hash, 0).SetVal("OK")
	mock.ExpectTxPipelineExec()

	got, err := sink.Append(context.Background(), Entry{UserID: "m1", Action: "RESTOCK", EntityID: "flour"})
	require.NoError(t, err)
	assert.Equal(t, Genesis, got.PrevHash)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedis_Verify(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sink := NewRedis(db, "audit")

	first := Entry{UserID: "m1", Action: "RESTOCK", Timestamp: fixedNow, PrevHash: Genesis}
	first.Hash = first.ComputeHash()
	second := Entry{UserID: "w1", Action: "PLACE_ORDER", Timestamp: fixedNow, PrevHash: first.Hash}
	second.Hash = second.ComputeHash()

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	mock.ExpectLRange("audit:log", 0, -1).SetVal([]string{string(a), string(b)})

	ok, err := sink.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

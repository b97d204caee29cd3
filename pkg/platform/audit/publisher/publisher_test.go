package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "unionhub/pkg/platform/audit"
	"unionhub/pkg/platform/audit/store/memory"
	"unionhub/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	ctx := requestcontext.WithAdminUsername(requestcontext.WithRequestID(context.Background(), "req-1"), "organiser")
	require.NoError(t, pub.Emit(ctx, audit.NewEvent(ctx, "members_imported", "source", "CSV_STANDARD", "created", 3)))

	events, err := pub.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, audit.CategoryCompliance, e.Category)
	assert.Equal(t, "organiser", e.Actor)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, "CSV_STANDARD", e.Subject)
	assert.Equal(t, "3", e.Attributes["created"])
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "bmm_ticket_issued"}))
	}
	pub.Close()

	events, err := store.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterCloseWritesSynchronously(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "admin_login"}))
	events, err := store.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

type blockingStore struct {
	release chan struct{}
	*memory.InMemoryStore
}

func (s *blockingStore) Append(ctx context.Context, e audit.Event) error {
	<-s.release
	return s.InMemoryStore.Append(ctx, e)
}

func TestPublisher_BufferFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{}), InMemoryStore: memory.NewInMemoryStore()}
	pub := NewPublisher(store, WithAsyncBuffer(1))

	var full error
	for range 5 {
		if err := pub.Emit(context.Background(), audit.Event{Action: "bmm_ticket_issued"}); err != nil {
			full = err
			break
		}
	}
	assert.True(t, errors.Is(full, ErrBufferFull))

	close(store.release)
	pub.Close()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "event_created"}))
	custom := fixed.Add(-time.Hour)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "event_updated", Timestamp: custom}))

	events, err := pub.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, custom, events[0].Timestamp, "existing timestamps are kept")
	assert.Equal(t, fixed, events[1].Timestamp)
	assert.Equal(t, audit.CategoryOperations, events[1].Category)
}

func TestPublisher_ListFilters(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	ctx := context.Background()

	require.NoError(t, pub.Emit(ctx, audit.NewEvent(ctx, "admin_login", "username", "a")))
	require.NoError(t, pub.Emit(ctx, audit.NewEvent(ctx, "bmm_checked_in", "event_member_id", "em-1")))
	require.NoError(t, pub.Emit(ctx, audit.NewEvent(ctx, "bmm_checked_in", "event_member_id", "em-2")))

	byAction, err := pub.List(ctx, audit.Filter{Action: "bmm_checked_in"})
	require.NoError(t, err)
	require.Len(t, byAction, 2)
	assert.Equal(t, "em-2", byAction[0].Subject, "most recent first")

	bySubject, err := pub.List(ctx, audit.Filter{Subject: "em-1"})
	require.NoError(t, err)
	assert.Len(t, bySubject, 1)

	security, err := pub.List(ctx, audit.Filter{Category: audit.CategorySecurity})
	require.NoError(t, err)
	require.Len(t, security, 1)
	assert.Equal(t, "admin_login", security[0].Action)

	limited, err := pub.List(ctx, audit.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPublisher_ConcurrentEmit(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(500))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{Action: "bmm_ticket_issued"})
		}()
	}
	wg.Wait()
	pub.Close()

	events, err := store.List(context.Background(), audit.Filter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, events, 50)
}

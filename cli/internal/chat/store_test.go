package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
)

func TestSessionStore_RefreshPreservesOrder(t *testing.T) {
	svc := &fakeService{sessionsFn: func(context.Context) ([]api.SessionSummary, error) {
		return []api.SessionSummary{
			{SessionID: "new", Title: "Latest", MessageCount: 4, LastMessageAt: "2024-01-02T00:00:00"},
			{SessionID: "old", Title: "Earlier", MessageCount: 2, LastMessageAt: "2024-01-01T00:00:00"},
		}, nil
	}}
	store := NewSessionStore(svc)

	require.NoError(t, store.Refresh(context.Background()))

	sessions := store.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].SessionID)
	assert.Equal(t, "old", sessions[1].SessionID)
	assert.Equal(t, 4, sessions[0].MessageCount)
	assert.Equal(t, 2024, sessions[0].LastActivity().Year())
}

func TestSessionStore_FailureKeepsPreviousList(t *testing.T) {
	fail := false
	svc := &fakeService{}
	svc.sessionsFn = func(context.Context) ([]api.SessionSummary, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return []api.SessionSummary{{SessionID: "s1", Title: "First"}}, nil
	}
	store := NewSessionStore(svc)
	require.NoError(t, store.Refresh(context.Background()))

	fail = true
	err := store.Refresh(context.Background())
	assert.Error(t, err)

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
}

func TestSessionStore_DropsOutOfOrderCompletion(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	var calls int
	var mu sync.Mutex
	svc := &fakeService{sessionsFn: func(context.Context) ([]api.SessionSummary, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return []api.SessionSummary{{SessionID: "stale"}}, nil
		}
		return []api.SessionSummary{{SessionID: "fresh"}}, nil
	}}
	store := NewSessionStore(svc)

	var delivered [][]Session
	var dmu sync.Mutex
	store.Subscribe(func(s []Session) {
		dmu.Lock()
		defer dmu.Unlock()
		delivered = append(delivered, s)
	})

	done := make(chan error, 1)
	go func() {
		done <- store.Refresh(context.Background())
	}()
	<-firstStarted

	require.NoError(t, store.Refresh(context.Background()))
	close(releaseFirst)
	require.NoError(t, <-done)

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "fresh", sessions[0].SessionID)

	dmu.Lock()
	defer dmu.Unlock()
	require.Len(t, delivered, 1)
	assert.Equal(t, "fresh", delivered[0][0].SessionID)
}

func TestSessionStore_RefreshAsync(t *testing.T) {
	svc := &fakeService{sessionsFn: func(context.Context) ([]api.SessionSummary, error) {
		return []api.SessionSummary{{SessionID: "s1"}}, nil
	}}
	store := NewSessionStore(svc)

	store.RefreshAsync()
	store.RefreshAsync()
	store.Wait()

	assert.Len(t, store.Sessions(), 1)
	assert.Equal(t, 2, svc.sessionsCalls)
}

func TestSessionStore_AsControllerRefresher(t *testing.T) {
	svc := &fakeService{sessionsFn: func(context.Context) ([]api.SessionSummary, error) {
		return []api.SessionSummary{{SessionID: "s1", Title: "hello"}}, nil
	}}
	store := NewSessionStore(svc)
	ctrl := NewController(context.Background(), svc, newMemoryKV(nil), WithSessionRefresher(store))

	require.NoError(t, ctrl.SendMessage(context.Background(), "hello"))
	store.Wait()

	assert.Equal(t, []Session{{SessionID: "s1", Title: "hello"}}, store.Sessions())
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"2024-01-01T00:00:00Z",
		"2024-01-01T00:00:00.123+05:30",
		"2024-01-01T00:00:00.123456",
		"2024-01-01 00:00:00",
	} {
		_, err := ParseTimestamp(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)

	assert.True(t, Session{LastMessageAt: "bad"}.LastActivity().IsZero())
	assert.Equal(t, time.UTC, Session{LastMessageAt: "2024-01-01T00:00:00"}.LastActivity().Location())
}

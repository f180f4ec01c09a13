package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary/internal/events"
)

func testWorker(maxAttempts int) *Worker {
	w := NewWorker(nil, maxAttempts, nil)
	w.BaseBackoff = time.Millisecond
	return w
}

func TestDeliverSignsBody(t *testing.T) {
	var (
		mu      sync.Mutex
		gotSig  string
		gotType string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotSig, gotType, gotBody = r.Header.Get(SignatureHeader), r.Header.Get("X-Event-Type"), b
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := testWorker(3)
	body := []byte(`{"id":"evt1"}`)
	require.NoError(t, w.Deliver(context.Background(), Target{URL: srv.URL, Secret: "secret"}, events.TypeCatalogReloaded, body))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, events.TypeCatalogReloaded, gotType)
	assert.Equal(t, body, gotBody)
	assert.True(t, VerifyHMAC("secret", gotBody, gotSig))
	assert.False(t, VerifyHMAC("other", gotBody, gotSig))
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, testWorker(5).Deliver(context.Background(), Target{URL: srv.URL}, "x", []byte(`{}`)))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeliverGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := testWorker(2).Deliver(context.Background(), Target{URL: srv.URL}, "x", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunForwardsBrokerEvents(t *testing.T) {
	got := make(chan map[string]any, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		got <- m
	}))
	defer srv.Close()

	broker := events.NewBroker()
	ch := broker.Subscribe(events.TopicCatalog)
	w := testWorker(1)
	w.Targets = []Target{{URL: srv.URL}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(context.Background(), ch)
	}()

	broker.Publish(events.TopicCatalog, events.Event{Type: events.TypeCatalogReloaded, Data: map[string]any{"size": 3}})
	select {
	case m := <-got:
		assert.Equal(t, events.TypeCatalogReloaded, m["type"])
		assert.Equal(t, float64(3), m["data"].(map[string]any)["size"])
		assert.NotEmpty(t, m["id"])
	case <-time.After(3 * time.Second):
		t.Fatal("no delivery")
	}

	broker.Unsubscribe(events.TopicCatalog, ch)
	<-done
}

func TestRunKeepsEventsWhileTargetIsSlow(t *testing.T) {
	release := make(chan struct{})
	var (
		mu   sync.Mutex
		seen []float64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		<-release
		mu.Lock()
		seen = append(seen, m["data"].(map[string]any)["n"].(float64))
		mu.Unlock()
	}))
	defer srv.Close()
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	broker := events.NewBroker()
	ch := broker.Subscribe(events.TopicCatalog)
	w := testWorker(1)
	w.Targets = []Target{{URL: srv.URL}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, ch)
	}()

	// more events than the broker subscription buffers, published while the first
	// delivery is stuck
	const n = 3 * 8
	for i := 0; i < n; i++ {
		broker.Publish(events.TopicCatalog, events.Event{Type: events.TypeCatalogReloaded, Data: map[string]any{"n": i}})
		require.Eventually(t, func() bool { return len(ch) == 0 }, time.Second, time.Millisecond)
	}
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == n
	}, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	for i, v := range seen {
		assert.Equal(t, float64(i), v)
	}
	mu.Unlock()

	broker.Unsubscribe(events.TopicCatalog, ch)
	<-done
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(time.Second, -1))
	assert.Equal(t, 8*time.Second, nextBackoff(time.Second, 3))
	assert.Equal(t, time.Hour, nextBackoff(time.Hour, 10))
}

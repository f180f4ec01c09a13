// Package webhooks pushes catalog events to subscriber URLs with signed, retried POSTs.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"itinerary/internal/events"
	"itinerary/internal/metrics"
)

// Target is one subscriber. An empty Secret sends unsigned requests.
type Target struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// DefaultQueueSize bounds the events a Worker holds while a delivery is retrying.
const DefaultQueueSize = 256

// Worker delivers every event it receives to every target, in order. Events are
// drained from the broker as they arrive and queued locally, so a slow target does
// not make the broker drop them; only a full queue drops, counted as "dropped".
type Worker struct {
	Targets     []Target
	HTTP        *http.Client
	MaxAttempts int
	BaseBackoff time.Duration
	QueueSize   int
	Log         *zap.Logger
}

func NewWorker(targets []Target, maxAttempts int, log *zap.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		Targets:     targets,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: maxAttempts,
		BaseBackoff: time.Second,
		QueueSize:   DefaultQueueSize,
		Log:         log,
	}
}

// Run consumes ch until it is closed or ctx ends.
func (w *Worker) Run(ctx context.Context, ch <-chan events.Event) {
	size := w.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	queue := make(chan events.Event, size)
	go w.enqueue(ctx, ch, queue)

	for evt := range queue {
		if ctx.Err() != nil {
			return
		}
		body, err := envelope(evt)
		if err != nil {
			w.Log.Warn("webhook payload", zap.Error(err))
			continue
		}
		for _, t := range w.Targets {
			if err := w.Deliver(ctx, t, evt.Type, body); err != nil {
				metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
				w.Log.Warn("webhook delivery gave up", zap.String("url", t.URL), zap.String("type", evt.Type), zap.Error(err))
				continue
			}
			metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
		}
	}
}

// enqueue moves events from the broker subscription into queue and closes queue when
// ch closes or ctx ends.
func (w *Worker) enqueue(ctx context.Context, ch <-chan events.Event, queue chan<- events.Event) {
	defer close(queue)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			select {
			case queue <- evt:
			default:
				metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
				w.Log.Warn("webhook queue full, event dropped", zap.String("type", evt.Type))
			}
		}
	}
}

func envelope(evt events.Event) ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":   "evt_" + uuid.NewString(),
		"type": evt.Type,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": evt.Data,
	})
}

// Deliver POSTs body to t, retrying non-2xx answers and transport errors with
// exponential backoff until MaxAttempts is reached.
func (w *Worker) Deliver(ctx context.Context, t Target, eventType string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt < w.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(nextBackoff(w.BaseBackoff, attempt-1)):
			}
		}
		lastErr = w.post(ctx, t, eventType, body)
		if lastErr == nil {
			return nil
		}
		w.Log.Debug("webhook attempt failed", zap.String("url", t.URL), zap.Int("attempt", attempt+1), zap.Error(lastErr))
	}
	return fmt.Errorf("after %d attempts: %w", w.MaxAttempts, lastErr)
}

func (w *Worker) post(ctx context.Context, t Target, eventType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", eventType)
	if t.Secret != "" {
		req.Header.Set(SignatureHeader, SignHMAC(t.Secret, body))
	}
	resp, err := w.HTTP.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func nextBackoff(base time.Duration, attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	d := base * time.Duration(1<<attempts)
	if d > time.Hour {
		d = time.Hour
	}
	return d
}

package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"qroute/internal/config"
	"qroute/internal/metrics"
)

// Notifier posts signed events to the configured targets with retry and
// exponential backoff. Deliveries are queued in memory; a lost process loses
// pending notifications, which is acceptable for solve status fan-out.
type Notifier struct {
	Targets     []config.WebhookTarget
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int

	mu    sync.Mutex
	queue []*delivery
}

type delivery struct {
	target      config.WebhookTarget
	eventType   string
	body        []byte
	attempts    int
	nextAttempt time.Time
}

func NewNotifier(targets []config.WebhookTarget) *Notifier {
	return &Notifier{
		Targets:     targets,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		Stop:        make(chan struct{}),
		MaxAttempts: 10,
	}
}

// Emit enqueues one event per target. Returns immediately; delivery is
// asynchronous.
func (n *Notifier) Emit(eventType string, data any) {
	if len(n.Targets) == 0 {
		return
	}
	payload := map[string]any{
		"id":   fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	n.mu.Lock()
	for _, t := range n.Targets {
		n.queue = append(n.queue, &delivery{target: t, eventType: eventType, body: body, nextAttempt: time.Now()})
	}
	n.mu.Unlock()
}

func (n *Notifier) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-n.Stop:
				return
			case <-ticker.C:
				n.processOnce()
			}
		}
	}()
}

func (n *Notifier) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now()

	n.mu.Lock()
	var due []*delivery
	for _, d := range n.queue {
		if !d.nextAttempt.After(now) {
			due = append(due, d)
		}
	}
	n.mu.Unlock()

	for _, d := range due {
		code, latency, err := n.deliver(ctx, d)
		success := err == nil && code >= 200 && code < 300
		status := "ok"
		if !success {
			status = "error"
		}
		metrics.WebhookDeliveries.WithLabelValues(d.eventType, status).Inc()
		metrics.WebhookLatency.WithLabelValues(d.eventType, status).Observe(float64(latency))

		n.mu.Lock()
		d.attempts++
		if success || d.attempts >= n.MaxAttempts {
			n.remove(d)
		} else {
			d.nextAttempt = time.Now().Add(nextBackoff(d.attempts))
		}
		n.mu.Unlock()
	}
}

func (n *Notifier) deliver(ctx context.Context, d *delivery) (code, latencyMs int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.target.URL, bytes.NewReader(d.body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.eventType)
	if d.target.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(d.target.Secret, d.body))
	}
	start := time.Now()
	resp, err := n.HTTP.Do(req)
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		return 0, latency, err
	}
	resp.Body.Close()
	return resp.StatusCode, latency, nil
}

func (n *Notifier) remove(d *delivery) {
	for i, q := range n.queue {
		if q == d {
			n.queue = append(n.queue[:i], n.queue[i+1:]...)
			return
		}
	}
}

// Pending reports queued deliveries, for tests and readiness checks.
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}

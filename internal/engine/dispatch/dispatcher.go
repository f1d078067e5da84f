// Package dispatch hands resolved identities off to the agent-execution
// service. The handoff is one-way: a delivery failure is logged and counted
// but never affects the resolver's own response.
package dispatch

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hooklink/internal/pkg/metrics"
	"hooklink/internal/platform/config"
	"hooklink/internal/platform/models"
)

type Delivery struct {
	ID       string                  `json:"id"`
	Identity *models.ResolvedIdentity `json:"identity"`
	Payload  json.RawMessage         `json:"payload"`
	QueuedAt int64                   `json:"queued_at"`
}

type Dispatcher struct {
	cfg    config.DispatchConfig
	client *http.Client
	queue  chan *Delivery
	done   chan struct{}
}

func NewDispatcher(cfg config.DispatchConfig) *Dispatcher {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		queue:  make(chan *Delivery, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.WorkerCount; i++ {
		go d.worker()
	}
}

func (d *Dispatcher) Stop() {
	close(d.done)
}

// Enqueue never blocks the caller. A full queue drops the delivery, which
// is the documented fire-and-forget contract.
func (d *Dispatcher) Enqueue(identity *models.ResolvedIdentity, rawPayload json.RawMessage) {
	delivery := &Delivery{
		ID:       "dsp_" + uuid.New().String(),
		Identity: identity,
		Payload:  rawPayload,
		QueuedAt: time.Now().Unix(),
	}

	select {
	case d.queue <- delivery:
	default:
		metrics.DispatchesTotal.WithLabelValues("dropped").Inc()
		log.Warn().
			Str("delivery_id", delivery.ID).
			Str("agent_id", identity.AgentID).
			Msg("dispatch queue full, delivery dropped")
	}
}

func (d *Dispatcher) worker() {
	for {
		select {
		case delivery := <-d.queue:
			d.deliver(delivery)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) deliver(delivery *Delivery) {
	body, err := json.Marshal(delivery)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return
	}

	req, err := http.NewRequest(http.MethodPost, d.cfg.RunnerURL, bytes.NewReader(body))
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hooklink-Signature", sign(d.cfg.SigningSecret, body))
	req.Header.Set("X-Hooklink-Delivery", delivery.ID)
	req.Header.Set("X-Hooklink-Agent", delivery.Identity.AgentID)

	resp, err := d.client.Do(req)
	if err != nil || resp.StatusCode >= 400 {
		metrics.DispatchesTotal.WithLabelValues("failed").Inc()
		evt := log.Warn().Str("delivery_id", delivery.ID)
		if err != nil {
			evt = evt.Err(err)
		} else {
			evt = evt.Int("status", resp.StatusCode)
		}
		evt.Msg("agent dispatch failed")
	} else {
		metrics.DispatchesTotal.WithLabelValues("delivered").Inc()
	}

	if resp != nil {
		resp.Body.Close()
	}
}

func sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

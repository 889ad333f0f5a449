package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/config"
	"github.com/spec-kit/factory-report-service/internal/notify"
)

const popTimeout = 5 * time.Second

// WebhookWorker drains the webhook queue and delivers each payload.
type WebhookWorker struct {
	redisClient *redis.Client
	httpClient  *http.Client
	logger      *zap.Logger
	cfg         config.NotificationConfig
	queueKey    string
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewWebhookWorker creates a worker. redisClient may be nil when only Deliver is used.
func NewWebhookWorker(redisClient *redis.Client, logger *zap.Logger, cfg config.NotificationConfig) *WebhookWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookWorker{
		redisClient: redisClient,
		httpClient:  &http.Client{Timeout: cfg.WebhookTimeout()},
		logger:      logger,
		cfg:         cfg,
		queueKey:    notify.QueueKey,
		sleep:       sleepContext,
	}
}

// Start runs the worker loop in a goroutine until ctx is cancelled. The
// returned channel is closed once the loop has exited.
func (w *WebhookWorker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	w.logger.Info("starting webhook worker", zap.String("queue", w.queueKey))
	go func() {
		defer close(done)
		w.run(ctx)
		w.logger.Info("webhook worker stopped")
	}()
	return done
}

func (w *WebhookWorker) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		result, err := w.redisClient.BRPop(ctx, popTimeout, w.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.logger.Error("pop webhook payload failed", zap.Error(err))
			if w.sleep(ctx, w.cfg.WebhookTimeout()) != nil {
				return
			}
			continue
		}
		// result[0] is the key, result[1] the value
		if err := w.Deliver(ctx, []byte(result[1])); err != nil {
			w.logger.Error("webhook delivery abandoned", zap.Error(err))
		}
	}
}

// Deliver POSTs body to the webhook URL, retrying with exponential back-off.
func (w *WebhookWorker) Deliver(ctx context.Context, body []byte) error {
	if w.cfg.WebhookURL == "" {
		w.logger.Warn("webhook url not configured, dropping payload")
		return nil
	}

	attempts := w.cfg.WebhookMaxRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := w.cfg.WebhookBaseDelay()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = w.post(ctx, body)
		if lastErr == nil {
			w.logger.Debug("webhook delivered", zap.Int("attempt", attempt))
			return nil
		}
		if attempt == attempts {
			break
		}
		w.logger.Warn("webhook delivery failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(lastErr))
		if err := w.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
	return fmt.Errorf("deliver webhook after %d attempts: %w", attempts, lastErr)
}

func (w *WebhookWorker) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.WebhookSecret != "" {
		req.Header.Set(notify.SignatureHeader, notify.Sign(body, w.cfg.WebhookSecret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

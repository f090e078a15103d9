package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/khatape/khata-ledger/pkg/prom"
	"github.com/valyala/fasthttp"
)

const StatusUpdatePath = "/payment_status_update"

var ErrCircuitOpen = errors.New("circuit breaker open")

type Config struct {
	BaseURL                 string
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	// Dial replaces the TCP dialer, used by tests to talk to in-memory listeners.
	Dial fasthttp.DialFunc
}

func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:                 baseURL,
		Timeout:                 5 * time.Second,
		MaxRetries:              2,
		RetryDelay:              200 * time.Millisecond,
		MaxConns:                64,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

type breaker struct {
	threshold        int32
	cooldown         time.Duration
	consecutiveFails atomic.Int32
	openUntil        atomic.Int64
	now              func() time.Time
}

func (b *breaker) available() bool {
	until := b.openUntil.Load()
	if until == 0 {
		return true
	}
	if b.now().UnixNano() >= until {
		// half open: let the next request try the endpoint
		b.openUntil.Store(0)
		return true
	}
	return false
}

func (b *breaker) success() {
	b.consecutiveFails.Store(0)
	b.openUntil.Store(0)
}

// failure records a failed call and reports whether it opened the circuit.
func (b *breaker) failure() bool {
	if b.threshold <= 0 {
		return false
	}
	fails := b.consecutiveFails.Add(1)
	if fails < b.threshold {
		return false
	}
	b.openUntil.Store(b.now().Add(b.cooldown).UnixNano())
	return true
}

// Client posts payment status updates to the customer app.
type Client struct {
	config  Config
	url     string
	http    *fasthttp.Client
	breaker *breaker
}

func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("notifier base url is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	c := &Client{
		config: config,
		url:    strings.TrimRight(config.BaseURL, "/") + StatusUpdatePath,
		http: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			Dial:                config.Dial,
		},
		breaker: &breaker{
			threshold: int32(config.CircuitBreakerThreshold),
			cooldown:  config.CircuitBreakerTimeout,
			now:       time.Now,
		},
	}
	logger.Info("status notifier initialized", "url", c.url, "timeout", config.Timeout, "max_retries", config.MaxRetries)
	return c, nil
}

// NotifyStatus delivers one update, retrying transport failures and non-2xx answers.
// Every failure is returned as a notification error.
func (c *Client) NotifyStatus(ctx context.Context, update model.PaymentStatusUpdate) error {
	start := time.Now()
	if !c.breaker.available() {
		prom.ObserveNotification("circuit_open", time.Since(start).Seconds())
		return apperr.Notification("notify_status", ErrCircuitOpen)
	}

	body, err := json.Marshal(update)
	if err != nil {
		return apperr.Notification("notify_status", fmt.Errorf("failed to marshal update: %w", err))
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				prom.ObserveNotification("failure", time.Since(start).Seconds())
				return apperr.Notification("notify_status", ctx.Err())
			case <-time.After(c.config.RetryDelay):
			}
		}

		if err := c.post(ctx, body); err != nil {
			lastErr = err
			if c.breaker.failure() {
				logger.Warn("status notifier circuit opened", "url", c.url, "cooldown", c.config.CircuitBreakerTimeout)
				break
			}
			logger.Warn("status notification failed, retrying", "transaction_id", update.TransactionID, "attempt", attempt+1, "error", err)
			continue
		}

		c.breaker.success()
		prom.ObserveNotification("success", time.Since(start).Seconds())
		logger.Debug("status notification delivered", "transaction_id", update.TransactionID, "status", update.Status)
		return nil
	}

	prom.ObserveNotification("failure", time.Since(start).Seconds())
	return apperr.Notification("notify_status", fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr))
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("unexpected status code: %d, body: %s", code, resp.Body())
	}
	return nil
}

func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

package subsonicapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/syeo66/voidweaver-sub001/internal/config"
	"github.com/syeo66/voidweaver-sub001/internal/log"
	"github.com/syeo66/voidweaver-sub001/internal/resilience"
)

// ProtocolError is a non-2xx HTTP response: a *Protocol*-class failure per
// spec §7's error taxonomy, distinct from a Transport-class failure
// (timeout, connection refused, TLS error). Protocol errors are never
// retried and never recorded against the circuit breaker, which exists to
// shield the server from a client retrying calls that were never going to
// succeed no matter how many times they're repeated.
type ProtocolError struct {
	Endpoint   string
	StatusCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("subsonicapi: %s returned unexpected status %d", e.Endpoint, e.StatusCode)
}

// HTTPTransport is the production Transport: it signs every request with
// the account's Credentials, throttles sustained throughput against
// NetworkConfig.MaxRequestsPerSecond, retries idempotent GETs per
// NetworkConfig's exponential-backoff-with-jitter policy, and trips a
// circuit breaker so a server outage fails fast instead of queueing a
// retry storm behind it. This is the concrete implementation of the
// transport boundary the rest of the package (and spec §1) treats as an
// external collaborator.
type HTTPTransport struct {
	client  *http.Client
	baseURL string
	creds   Credentials
	network config.NetworkConfig
	breaker *resilience.CircuitBreaker
	limiter *rate.Limiter
}

// TransportOption configures optional HTTPTransport behaviour.
type TransportOption func(*HTTPTransport)

// WithRoundTripper overrides the underlying http.Client's transport;
// tests use it to simulate transport-class failures (connection refused,
// timeout) without a real flaky server.
func WithRoundTripper(rt http.RoundTripper) TransportOption {
	return func(t *HTTPTransport) { t.client.Transport = rt }
}

// NewHTTPTransport constructs an HTTPTransport against baseURL (already
// validated https by NewClient), signing with creds and retrying per
// network.
func NewHTTPTransport(baseURL string, creds Credentials, network config.NetworkConfig, opts ...TransportOption) *HTTPTransport {
	var limiter *rate.Limiter
	if network.MaxRequestsPerSecond > 0 {
		burst := int(network.MaxRequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(network.MaxRequestsPerSecond), burst)
	}
	t := &HTTPTransport{
		client: &http.Client{
			Timeout: network.RequestTimeout,
		},
		baseURL: baseURL,
		creds:   creds,
		network: network,
		breaker: resilience.NewCircuitBreaker("subsonicapi-transport", 5, 5, time.Minute, 30*time.Second),
		limiter: limiter,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get issues a signed GET against endpoint. Transport-class failures
// (timeout, connection refused, TLS error) are retried up to
// MaxRetryAttempts with exponential backoff and jitter, and count toward
// the circuit breaker; a ProtocolError (non-2xx response) is surfaced
// immediately per spec §7 — it is not retried and does not trip the
// breaker, since repeating the same request against the same server
// state would only get the same answer. Only GETs are retried, per the
// server protocol contract.
func (t *HTTPTransport) Get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if !t.breaker.AllowRequest() {
		return nil, fmt.Errorf("subsonicapi: %w", resilience.ErrCircuitOpen)
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("subsonicapi: rate limit wait: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= t.network.MaxRetryAttempts; attempt++ {
		if attempt > 0 {
			t.sleep(ctx, backoffFor(attempt, t.network))
		}

		t.breaker.RecordAttempt()
		body, err := t.doOnce(ctx, endpoint, params)
		if err == nil {
			t.breaker.RecordSuccess()
			return body, nil
		}

		var protoErr *ProtocolError
		if errors.As(err, &protoErr) {
			return nil, fmt.Errorf("subsonicapi: %w", protoErr)
		}

		lastErr = err
		t.breaker.RecordTechnicalFailure()
		log.WithComponent("subsonicapi").Debug().
			Err(err).Str("endpoint", endpoint).Int("attempt", attempt).
			Msg("request attempt failed")
	}
	return nil, fmt.Errorf("subsonicapi: %s failed after %d attempts: %w", endpoint, t.network.MaxRetryAttempts+1, lastErr)
}

func (t *HTTPTransport) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (t *HTTPTransport) doOnce(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	auth, err := SignParams(t.creds)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	for k, v := range params {
		auth.Set(k, v)
	}

	reqURL := fmt.Sprintf("%s/rest/%s?%s", t.baseURL, endpoint, auth.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProtocolError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	return body, nil
}

// backoffFor computes the exponential-backoff-with-jitter delay for a
// retry attempt, capped at network.MaxBackoff.
func backoffFor(attempt int, network config.NetworkConfig) time.Duration {
	backoff := network.BaseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= network.MaxBackoff {
			backoff = network.MaxBackoff
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(network.BaseBackoff) + 1))
	total := backoff + jitter
	if total > network.MaxBackoff {
		total = network.MaxBackoff
	}
	return total
}

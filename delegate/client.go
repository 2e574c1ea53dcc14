package delegate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/agentplane/agentplane/logging"
)

// ClientOptions configure a delegation Client.
type ClientOptions struct {
	// HTTPClient used for all requests. Defaults to a dedicated client;
	// per-call timeouts come from Timeout, not the client.
	HTTPClient *http.Client
	// Timeout bounds each individual attempt of a unary call and of the
	// capability card fetch. Streaming calls are bounded only by the
	// caller's context, since the response body lives as long as the
	// request context. Default 60s.
	Timeout time.Duration
	// MaxAttempts bounds connection attempts per call, retried with
	// exponential backoff. Default 3.
	MaxAttempts int
	// RetryInterval is the initial backoff interval. Default 500ms.
	RetryInterval time.Duration
	// Logger receives request diagnostics; default no-op.
	Logger logging.Logger
}

// Client talks the delegation protocol to one remote endpoint. It caches the
// capability card after the first discovery. Safe for concurrent use.
type Client struct {
	endpoint string
	opts     ClientOptions

	mu   sync.Mutex
	card *Card
}

// NewClient creates a delegation client for the given endpoint URL.
func NewClient(endpoint string, optFns ...func(o *ClientOptions)) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid delegation endpoint %q: %w", endpoint, err)
	}
	if endpoint == "" || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("delegation endpoint %q must be an absolute URL", endpoint)
	}

	opts := ClientOptions{
		HTTPClient:    &http.Client{},
		Timeout:       60 * time.Second,
		MaxAttempts:   3,
		RetryInterval: 500 * time.Millisecond,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Client{endpoint: strings.TrimRight(endpoint, "/"), opts: opts}, nil
}

// cardURL derives the well-known card location from the endpoint's origin.
func (c *Client) cardURL() string {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return c.endpoint + WellKnownCardPath
	}
	return u.Scheme + "://" + u.Host + WellKnownCardPath
}

// Discover fetches and caches the remote capability card.
func (c *Client) Discover(ctx context.Context) (*Card, error) {
	c.mu.Lock()
	if c.card != nil {
		card := *c.card
		c.mu.Unlock()
		return &card, nil
	}
	c.mu.Unlock()

	card, err := retry(ctx, c.opts, func() (*Card, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.cardURL(), nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.opts.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, statusError(resp)
		}
		var card Card
		if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("malformed capability card: %w", err))
		}
		return &card, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.card = card
	c.mu.Unlock()

	c.opts.Logger.Debug("delegate.card.discovered", "endpoint", c.endpoint, "streaming", card.Capabilities.Streaming)
	return card, nil
}

// Send issues a unary call and returns the remote plan's final output.
// Transport failures are retried up to MaxAttempts; a remote-reported error
// is returned without retry.
func (c *Client) Send(ctx context.Context, input any, meta map[string]any) (any, error) {
	if _, err := c.Discover(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(Envelope{Method: MethodSend, Params: Params{Input: input, Context: meta}})
	if err != nil {
		return nil, err
	}

	return retry(ctx, c.opts, func() (any, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		resp, err := c.post(reqCtx, body, "application/json")
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, statusError(resp)
		}

		var result SendResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("malformed delegation response: %w", err))
		}
		if result.Error != nil {
			return nil, backoff.Permanent(result.Error)
		}
		return result.Result, nil
	})
}

// Stream issues a streaming call. Envelopes are delivered on the returned
// channel until a terminal envelope arrives; both channels are closed when
// the stream ends. A remote that does not advertise streaming fails with
// ErrCapabilityMismatch before any connection attempt. A connection drop
// before the terminal envelope yields ErrStreamInterrupted on the error
// channel. The stream's lifetime is governed by ctx, not by Timeout.
func (c *Client) Stream(ctx context.Context, input any, meta map[string]any) (<-chan StreamEnvelope, <-chan error, error) {
	card, err := c.Discover(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !card.Capabilities.Streaming {
		return nil, nil, fmt.Errorf("%w: streaming requested from %s", ErrCapabilityMismatch, c.endpoint)
	}

	body, err := json.Marshal(Envelope{Method: MethodStream, Params: Params{Input: input, Context: meta}})
	if err != nil {
		return nil, nil, err
	}

	// Only connection establishment is retried. Once frames flow, a drop is
	// reported as an interruption rather than silently replayed.
	resp, err := retry(ctx, c.opts, func() (*http.Response, error) {
		resp, err := c.post(ctx, body, "application/x-ndjson")
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, statusError(resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, nil, err
	}

	out := make(chan StreamEnvelope, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)
		defer resp.Body.Close()

		terminal := false
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			// Tolerate SSE framing: the payload still is the JSON envelope,
			// carried on data: lines.
			if bytes.HasPrefix(line, []byte("event:")) || bytes.HasPrefix(line, []byte(":")) {
				continue
			}
			line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
			var env StreamEnvelope
			if err := json.Unmarshal(line, &env); err != nil {
				errCh <- fmt.Errorf("malformed stream envelope: %w", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- env:
			}
			if env.Terminal() {
				terminal = true
				break
			}
		}
		if terminal {
			return
		}
		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("%w: %v", ErrStreamInterrupted, err)
			return
		}
		errCh <- ErrStreamInterrupted
	}()

	return out, errCh, nil
}

func (c *Client) post(ctx context.Context, body []byte, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	return c.opts.HTTPClient.Do(req)
}

// statusError classifies an HTTP status: server-side and throttling statuses
// stay retryable, everything else is permanent.
func statusError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("delegation endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return err
	}
	return backoff.Permanent(err)
}

// retry runs op with exponential backoff up to MaxAttempts, mapping
// exhaustion of transport failures to ErrUnavailable. Permanent errors and
// context cancellation pass through untouched.
func retry[T any](ctx context.Context, opts ClientOptions, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.RetryInterval

	var sawPermanent bool
	wrapped := func() (T, error) {
		v, err := op()
		if err != nil {
			var pe *backoff.PermanentError
			if errors.As(err, &pe) {
				sawPermanent = true
			}
		}
		return v, err
	}

	result, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(opts.MaxAttempts)),
	)
	if err != nil {
		var zero T
		if sawPermanent || ctx.Err() != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, opts.MaxAttempts, err)
	}
	return result, nil
}

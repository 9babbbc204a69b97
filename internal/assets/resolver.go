// Package assets resolves the on-chain holdings of a wallet address from the
// external balance service.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lotta-llamas/api/internal/logging"
)

// Resolver looks up the assets currently held by a wallet. Implementations
// are called once per login; entitlements are then frozen into the issued
// capability token.
type Resolver interface {
	Resolve(ctx context.Context, address string) ([]string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, address string) ([]string, error)

func (f ResolverFunc) Resolve(ctx context.Context, address string) ([]string, error) {
	return f(ctx, address)
}

// HTTPResolver queries a Counterparty-style balance endpoint.
type HTTPResolver struct {
	client     *http.Client
	endpoint   *url.URL
	maxRetries int
	log        *logging.Logger
}

// NewHTTPResolver builds a resolver against endpoint. A zero timeout
// defaults to five seconds so a slow upstream cannot block logins
// indefinitely.
func NewHTTPResolver(endpoint string, timeout time.Duration, maxRetries int, log *logging.Logger) (*HTTPResolver, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("resolver endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse resolver endpoint: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if log == nil {
		log = logging.New("asset-resolver", "info", "json")
	}
	return &HTTPResolver{
		client:     &http.Client{Timeout: timeout},
		endpoint:   parsed,
		maxRetries: maxRetries,
		log:        log,
	}, nil
}

// Resolve fetches the balances for address and returns the held asset
// identifiers. An upstream failure is never conflated with an empty wallet.
func (r *HTTPResolver) Resolve(ctx context.Context, address string) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		held, err := r.fetch(ctx, address)
		if err == nil {
			return held, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		r.log.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"attempt": attempt + 1,
		}).Warn("balance lookup failed")
	}
	return nil, lastErr
}

func (r *HTTPResolver) fetch(ctx context.Context, address string) ([]string, error) {
	requestURL := *r.endpoint
	requestURL.Path = strings.TrimRight(requestURL.Path, "/") + "/api/balances/" + url.PathEscape(address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build balance request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("balance request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("balance service status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read balance response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed balance response")
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() || !data.IsArray() {
		return nil, fmt.Errorf("balance response missing data array")
	}

	// The long name identifies subassets; plain assets only carry "asset".
	// Empty identifiers are dropped; duplicates are passed through as the
	// upstream reports them.
	var held []string
	data.ForEach(func(_, entry gjson.Result) bool {
		name := entry.Get("asset_longname").String()
		if name == "" {
			name = entry.Get("asset").String()
		}
		if name != "" {
			held = append(held, name)
		}
		return true
	})
	return held, nil
}

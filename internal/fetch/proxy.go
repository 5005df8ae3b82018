package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/contestprep/examforge/pkg/logging"
)

// FetchError describes a failure to retrieve a page through the relay
// proxies. It is a terminal failure at this layer; retry policy for the
// overall harvest task lives with the caller.
type FetchError struct {
	URL        string
	Proxy      string
	StatusCode int
	Reason     string
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s via %s: HTTP %d: %s", e.URL, e.Proxy, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("fetch %s via %s: %s", e.URL, e.Proxy, e.Reason)
}

// Config configures the proxy fetcher.
type Config struct {
	// PrimaryProxy is a plain-text passthrough relay; the target URL is
	// appended query-escaped.
	PrimaryProxy string `json:"primary_proxy"`
	// FallbackProxy is a JSON-wrapped relay returning {"contents": "..."}.
	FallbackProxy string `json:"fallback_proxy"`
	UserAgent     string `json:"user_agent"`
	Timeout       time.Duration `json:"timeout"`
	// MinBodyLength guards against interstitial or error pages served with a
	// 200 status: anything shorter is treated as a failed fetch.
	MinBodyLength int `json:"min_body_length"`
}

// DefaultConfig returns default fetcher configuration
func DefaultConfig() *Config {
	return &Config{
		PrimaryProxy:  "https://corsproxy.io/?url=",
		FallbackProxy: "https://api.allorigins.win/get?url=",
		UserAgent:     "examforge/1.0 (+https://github.com/contestprep/examforge)",
		Timeout:       30 * time.Second,
		MinBodyLength: 100,
	}
}

// ProxyFetcher retrieves raw HTML for a URL through third-party relay
// proxies, falling back once from the primary relay to the JSON-wrapped one.
type ProxyFetcher struct {
	client *http.Client
	config *Config
	log    zerolog.Logger
}

// NewProxyFetcher creates a new proxy fetcher
func NewProxyFetcher(config *Config) *ProxyFetcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &ProxyFetcher{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
		log:    logging.GetLogger("fetch"),
	}
}

// Fetch retrieves the page at targetURL. It tries the primary relay first
// and the fallback relay once; there is no further retry at this layer
// because relay failures here are typically structural rather than
// transient.
func (f *ProxyFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	body, primaryErr := f.fetchPrimary(ctx, targetURL)
	if primaryErr == nil {
		return body, nil
	}

	f.log.Debug().
		Str("url", targetURL).
		Err(primaryErr).
		Msg("Primary relay failed, trying fallback")

	body, fallbackErr := f.fetchFallback(ctx, targetURL)
	if fallbackErr == nil {
		return body, nil
	}

	f.log.Warn().
		Str("url", targetURL).
		AnErr("primary_error", primaryErr).
		AnErr("fallback_error", fallbackErr).
		Msg("Both relay proxies failed")

	return "", fallbackErr
}

func (f *ProxyFetcher) fetchPrimary(ctx context.Context, targetURL string) (string, error) {
	raw, err := f.get(ctx, f.config.PrimaryProxy+url.QueryEscape(targetURL), targetURL, "primary")
	if err != nil {
		return "", err
	}
	if len(raw) < f.config.MinBodyLength {
		return "", &FetchError{
			URL:    targetURL,
			Proxy:  "primary",
			Reason: fmt.Sprintf("body too short (%d bytes)", len(raw)),
		}
	}
	return raw, nil
}

// allOriginsEnvelope is the fallback relay's response shape.
type allOriginsEnvelope struct {
	Contents string `json:"contents"`
}

func (f *ProxyFetcher) fetchFallback(ctx context.Context, targetURL string) (string, error) {
	raw, err := f.get(ctx, f.config.FallbackProxy+url.QueryEscape(targetURL), targetURL, "fallback")
	if err != nil {
		return "", err
	}

	var envelope allOriginsEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return "", &FetchError{
			URL:    targetURL,
			Proxy:  "fallback",
			Reason: fmt.Sprintf("malformed relay envelope: %v", err),
		}
	}
	if len(envelope.Contents) < f.config.MinBodyLength {
		return "", &FetchError{
			URL:    targetURL,
			Proxy:  "fallback",
			Reason: fmt.Sprintf("body too short (%d bytes)", len(envelope.Contents)),
		}
	}
	return envelope.Contents, nil
}

func (f *ProxyFetcher) get(ctx context.Context, relayURL, targetURL, proxyName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, relayURL, nil)
	if err != nil {
		return "", &FetchError{URL: targetURL, Proxy: proxyName, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: targetURL, Proxy: proxyName, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{
			URL:        targetURL,
			Proxy:      proxyName,
			StatusCode: resp.StatusCode,
			Reason:     resp.Status,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: targetURL, Proxy: proxyName, Reason: err.Error()}
	}

	return strings.TrimSpace(string(raw)), nil
}

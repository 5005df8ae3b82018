package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var longPage = "<html><body>" + strings.Repeat("competition problem content ", 10) + "</body></html>"

func newRelay(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(primary, fallback string) *Config {
	cfg := DefaultConfig()
	cfg.PrimaryProxy = primary + "/?url="
	cfg.FallbackProxy = fallback + "/get?url="
	return cfg
}

func TestFetchPrimarySuccess(t *testing.T) {
	fallbackCalled := false
	primary := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "artofproblemsolving.com")
		w.Write([]byte(longPage))
	})
	fallback := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		fallbackCalled = true
	})

	f := NewProxyFetcher(testConfig(primary.URL, fallback.URL))
	body, err := f.Fetch(context.Background(), "https://artofproblemsolving.com/wiki/index.php?title=X")

	require.NoError(t, err)
	assert.Equal(t, longPage, body)
	assert.False(t, fallbackCalled, "fallback must not be hit when primary succeeds")
}

func TestFetchShortBodyFallsBack(t *testing.T) {
	primary := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("blocked")) // 200 OK interstitial masquerading as content
	})
	fallback := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"contents": longPage})
	})

	f := NewProxyFetcher(testConfig(primary.URL, fallback.URL))
	body, err := f.Fetch(context.Background(), "https://example.org/page")

	require.NoError(t, err)
	assert.Equal(t, longPage, body)
}

func TestFetchPrimaryErrorStatusFallsBack(t *testing.T) {
	primary := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream blocked", http.StatusForbidden)
	})
	fallback := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"contents": longPage})
	})

	f := NewProxyFetcher(testConfig(primary.URL, fallback.URL))
	body, err := f.Fetch(context.Background(), "https://example.org/page")

	require.NoError(t, err)
	assert.Equal(t, longPage, body)
}

func TestFetchBothRelaysFail(t *testing.T) {
	primary := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	fallback := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"contents": "tiny"})
	})

	f := NewProxyFetcher(testConfig(primary.URL, fallback.URL))
	_, err := f.Fetch(context.Background(), "https://example.org/page")

	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "fallback", fe.Proxy)
}

func TestFetchFallbackMalformedEnvelope(t *testing.T) {
	primary := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	fallback := newRelay(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	f := NewProxyFetcher(testConfig(primary.URL, fallback.URL))
	_, err := f.Fetch(context.Background(), "https://example.org/page")

	require.Error(t, err)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "malformed relay envelope")
}

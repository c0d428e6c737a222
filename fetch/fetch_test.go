package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: client with fast retries
func newTestClient() *Client {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return NewClient(cfg)
}

// TestBytes_Success verifies a 200 body is returned as-is
func TestBytes_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("GIF89a"))
	}))
	defer server.Close()

	data, err := newTestClient().Bytes(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), data)
	assert.Equal(t, DefaultUserAgent, gotUA, "should send the configured User-Agent")
}

// TestBytes_HTTPError verifies non-200 responses become TransportErrors
func TestBytes_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient().Bytes(context.Background(), server.URL)
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, server.URL, te.URL)
	assert.Contains(t, err.Error(), "HTTP error: 503")
	assert.True(t, IsTransportError(err))
}

// TestBytes_ConnectionRefused verifies network failures are TransportErrors
func TestBytes_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient().Bytes(context.Background(), url)
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

// TestBytes_TooLarge verifies the body cap
func TestBytes_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.MaxBodySize = 10
	_, err := NewClient(cfg).Bytes(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")
}

// TestText_IgnoresDeclaredCharset verifies bodies are decoded as UTF-8
func TestText_IgnoresDeclaredCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<h2>关键事件</h2>"))
	}))
	defer server.Close()

	text, err := newTestClient().Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<h2>关键事件</h2>", text)
}

// TestDecode_InvalidUTF8 verifies invalid bytes become replacement chars
func TestDecode_InvalidUTF8(t *testing.T) {
	text, err := Decode([]byte{'a', 0xff, 'b'}, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "a�b", text)
}

// TestDecode_OtherEncoding verifies a configured legacy encoding
func TestDecode_OtherEncoding(t *testing.T) {
	// "é" in ISO-8859-1
	text, err := Decode([]byte{0xe9}, "iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "é", text)
}

// TestDecode_UnknownEncoding verifies unknown labels are rejected
func TestDecode_UnknownEncoding(t *testing.T) {
	_, err := Decode([]byte("x"), "no-such-charset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown encoding")
}

// TestDocument_Parses verifies HTML is parsed into a document
func TestDocument_Parses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><h2>Hello</h2></body></html>"))
	}))
	defer server.Close()

	doc, err := newTestClient().Document(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Hello", doc.Find("h2").Text())
}

// TestBytesWithRetry_RecoversAfterFailure verifies transient errors are retried
func TestBytesWithRetry_RecoversAfterFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	data, err := newTestClient().BytesWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
	assert.Equal(t, int32(2), calls.Load())
}

// TestBytesWithRetry_NoRetryOnClientError verifies 4xx is final
func TestBytesWithRetry_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient().BytesWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// TestBytesWithRetry_GivesUp verifies the retry budget
func TestBytesWithRetry_GivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient()
	_, err := client.BytesWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(client.Config().Retries+1), calls.Load())
}

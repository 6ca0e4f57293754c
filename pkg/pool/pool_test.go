package pool

import (
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewConnectionPool(t *testing.T) {
	pool := NewConnectionPool(PoolConfig{}, zap.NewNop())
	if pool == nil {
		t.Fatal("Expected non-nil pool")
	}

	if got := pool.Stats()["http_clients"]; got != 0 {
		t.Errorf("Expected 0 http clients, got %d", got)
	}
	if pool.config.RequestTimeout != DefaultPoolConfig().RequestTimeout {
		t.Errorf("Expected default request timeout, got %v", pool.config.RequestTimeout)
	}
}

func TestConnectionPool_GetHTTPClient(t *testing.T) {
	config := DefaultPoolConfig()
	config.RequestTimeout = 7 * time.Second
	pool := NewConnectionPool(config, nil)

	client1 := pool.GetHTTPClient("https://sandbox.plaid.com")
	if client1 == nil {
		t.Fatal("Expected non-nil client")
	}
	if client1.Timeout != 7*time.Second {
		t.Errorf("Expected 7s timeout, got %v", client1.Timeout)
	}

	transport, ok := client1.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Expected *http.Transport, got %T", client1.Transport)
	}
	if transport.TLSClientConfig == nil {
		t.Error("Expected TLS config for https address")
	}

	// Get same client again - should return cached
	client2 := pool.GetHTTPClient("https://sandbox.plaid.com")
	if client1 != client2 {
		t.Error("Expected same client instance")
	}

	plain := pool.GetHTTPClient("http://127.0.0.1:8080")
	if plain.Transport.(*http.Transport).TLSClientConfig != nil {
		t.Error("Expected no TLS config for http address")
	}

	if got := pool.Stats()["http_clients"]; got != 2 {
		t.Errorf("Expected 2 http clients, got %d", got)
	}
}

func TestConnectionPool_CloseAll(t *testing.T) {
	pool := NewConnectionPool(DefaultPoolConfig(), nil)

	pool.GetHTTPClient("http://example1.com")
	pool.GetHTTPClient("http://example2.com")

	pool.CloseAllConnections()

	if got := pool.Stats()["http_clients"]; got != 0 {
		t.Errorf("Expected 0 http clients after close, got %d", got)
	}
}

func TestConnectionPool_ConcurrentAccess(t *testing.T) {
	pool := NewConnectionPool(DefaultPoolConfig(), nil)

	done := make(chan *http.Client)
	for i := 0; i < 10; i++ {
		go func() {
			done <- pool.GetHTTPClient("http://concurrent-test.com")
		}()
	}

	var first *http.Client
	for i := 0; i < 10; i++ {
		select {
		case c := <-done:
			if first == nil {
				first = c
			} else if c != first {
				t.Error("Expected every goroutine to get the same client")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Timeout waiting for goroutines")
		}
	}

	if got := pool.Stats()["http_clients"]; got != 1 {
		t.Errorf("Expected 1 http client, got %d", got)
	}
}

package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPClient(ClientConfig{
		SecretKey:   "sk_test_secret",
		Currency:    "GHS",
		CallbackURL: "https://shop.example.com/thanks",
		BaseURL:     server.URL,
	})
}

func TestInitialize(t *testing.T) {
	var gotAuth string
	var gotBody initializeRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("path = %q, want /transaction/initialize", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc123","access_code":"abc123","reference":"ref_123"}}`))
	})

	url, err := client.Initialize(context.Background(), "buyer@example.com", 50, map[string]any{"distance": 12})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if url != "https://checkout.paystack.com/abc123" {
		t.Errorf("authorization URL = %q", url)
	}
	if gotAuth != "Bearer sk_test_secret" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
	// Major units convert to minor units on the wire.
	if gotBody.Amount != 5000 {
		t.Errorf("amount = %d, want 5000", gotBody.Amount)
	}
	if gotBody.Currency != "GHS" {
		t.Errorf("currency = %q, want GHS", gotBody.Currency)
	}
	if gotBody.CallbackURL != "https://shop.example.com/thanks" {
		t.Errorf("callback_url = %q", gotBody.CallbackURL)
	}
	if gotBody.Metadata["distance"] != float64(12) {
		t.Errorf("metadata not passed through: %v", gotBody.Metadata)
	}
}

func TestInitialize_GatewayFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	})

	_, err := client.Initialize(context.Background(), "buyer@example.com", 50, nil)
	if err == nil {
		t.Fatal("Initialize() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Invalid key") {
		t.Errorf("error %q does not carry the gateway message", err)
	}
}

func TestInitialize_StatusFalseOn200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":false,"message":"Duplicate reference"}`))
	})

	if _, err := client.Initialize(context.Background(), "buyer@example.com", 50, nil); err == nil {
		t.Error("Initialize() expected error when gateway reports status=false")
	}
}

func TestInitialize_Validation(t *testing.T) {
	client := NewHTTPClient(ClientConfig{SecretKey: "sk_test"})

	if _, err := client.Initialize(context.Background(), "", 50, nil); !errors.Is(err, ErrMissingEmail) {
		t.Errorf("empty email: error = %v, want ErrMissingEmail", err)
	}
	if _, err := client.Initialize(context.Background(), "buyer@example.com", 0, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: error = %v, want ErrInvalidAmount", err)
	}
	if _, err := client.Initialize(context.Background(), "buyer@example.com", -1, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: error = %v, want ErrInvalidAmount", err)
	}
}

func TestInitialize_ContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Initialize(ctx, "buyer@example.com", 50, nil); err == nil {
		t.Error("Initialize() with canceled context: expected error")
	}
}

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestClient_CreateOrder(t *testing.T) {
	t.Parallel()

	t.Run("sends basic auth and minor units, decodes order", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders" || r.Method != http.MethodPost {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != "key-id" || pass != "key-secret" {
				t.Errorf("unexpected credentials %s:%s", user, pass)
			}

			var in CreateOrderInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if in.Amount != 100000 || in.Currency != "INR" {
				t.Errorf("unexpected input %+v", in)
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(Order{
				ID:       "order_test123",
				Amount:   in.Amount,
				Currency: in.Currency,
				Receipt:  in.Receipt,
				Status:   "created",
			})
		}))
		defer srv.Close()

		c := NewClient(zap.NewNop(), srv.URL, "key-id", "key-secret")
		order, err := c.CreateOrder(context.Background(), CreateOrderInput{
			Amount:   100000,
			Currency: "INR",
			Receipt:  "rcpt_1",
		})
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if order.ID != "order_test123" {
			t.Fatalf("expected order_test123, got %s", order.ID)
		}
	})

	t.Run("non-2xx becomes an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := NewClient(zap.NewNop(), srv.URL, "key-id", "wrong")
		if _, err := c.CreateOrder(context.Background(), CreateOrderInput{Amount: 100, Currency: "INR"}); err == nil {
			t.Fatalf("expected error for 401 response")
		}
	})

	t.Run("missing id becomes an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := NewClient(zap.NewNop(), srv.URL, "key-id", "key-secret")
		if _, err := c.CreateOrder(context.Background(), CreateOrderInput{Amount: 100, Currency: "INR"}); err == nil {
			t.Fatalf("expected error for response without id")
		}
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tiffin-next/internal/cache"
	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/models"
	"github.com/tiffin-next/internal/repository"
)

type checkoutFixture struct {
	sessions *CartSessionService
	repo     repository.CheckoutHandoffRepository
	svc      *CheckoutService
}

func newCheckoutFixture(t *testing.T, client CheckoutClient) *checkoutFixture {
	t.Helper()
	cache.UseClient(nil, "")
	sessions := NewCartSessionService(newMemoryPersistence(), newRecordingWriter())
	repo := repository.NewCheckoutHandoffRepository(setupServiceTestDB(t, "checkout_handoff"))
	return &checkoutFixture{
		sessions: sessions,
		repo:     repo,
		svc:      NewCheckoutService(sessions, repo, nil, client, 0),
	}
}

func (f *checkoutFixture) fill(t *testing.T, sessionID string) {
	t.Helper()
	err := f.sessions.Do(context.Background(), sessionID, func(store *CartStore) error {
		if _, err := store.Add(customItem("pizza", "200", "Large", "300", addon("cheese", "20"))); err != nil {
			return err
		}
		_, err := store.Add(messItem("mess-a", "3000"))
		return err
	})
	if err != nil {
		t.Fatalf("fill cart failed: %v", err)
	}
}

func TestCheckoutHandoffDeliversSnapshot(t *testing.T) {
	var received models.CheckoutSnapshot
	var idempotencyKey, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idempotencyKey = r.Header.Get("Idempotency-Key")
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewHTTPCheckoutClient(config.CheckoutConfig{Endpoint: server.URL, APIKey: "secret"})
	f := newCheckoutFixture(t, client)
	f.fill(t, "sess-1")

	snapshot, err := f.svc.Handoff(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("handoff failed: %v", err)
	}
	if !strings.HasPrefix(snapshot.HandoffNo, "HO") {
		t.Fatalf("unexpected handoff no %s", snapshot.HandoffNo)
	}
	if received.HandoffNo != snapshot.HandoffNo || idempotencyKey != snapshot.HandoffNo {
		t.Fatalf("backend should receive the handoff number")
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if received.Total.Display() != "3320.00" || len(received.Lines) != 2 {
		t.Fatalf("unexpected delivered snapshot %+v", received)
	}

	stored, err := f.repo.GetByNo(context.Background(), snapshot.HandoffNo)
	if err != nil || stored == nil {
		t.Fatalf("handoff row missing: %v", err)
	}
	if stored.Status != constants.HandoffStatusDelivered || stored.Attempts != 1 || stored.DeliveredAt == nil {
		t.Fatalf("unexpected handoff row %+v", stored)
	}

	_ = f.sessions.Do(context.Background(), "sess-1", func(store *CartStore) error {
		if store.LineCount() != 2 {
			t.Fatalf("handoff must not clear the cart")
		}
		return nil
	})
}

func TestCheckoutHandoffEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	if _, err := f.svc.Handoff(context.Background(), "sess-1"); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty got %v", err)
	}
}

func TestCheckoutHandoffRejectedByBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "outlet closed", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	f := newCheckoutFixture(t, NewHTTPCheckoutClient(config.CheckoutConfig{Endpoint: server.URL}))
	f.fill(t, "sess-1")
	snapshot, err := f.svc.Handoff(context.Background(), "sess-1")
	if !errors.Is(err, ErrCheckoutRejected) {
		t.Fatalf("want ErrCheckoutRejected got %v", err)
	}
	if snapshot == nil {
		t.Fatalf("snapshot should be returned with the rejection")
	}
	stored, _ := f.repo.GetByNo(context.Background(), snapshot.HandoffNo)
	if stored == nil || stored.Status != constants.HandoffStatusFailed || !strings.Contains(stored.LastError, "outlet closed") {
		t.Fatalf("unexpected handoff row %+v", stored)
	}
}

func TestCheckoutHandoffNotConfigured(t *testing.T) {
	for name, client := range map[string]CheckoutClient{
		"nil":         nil,
		"no_endpoint": NewHTTPCheckoutClient(config.CheckoutConfig{}),
	} {
		t.Run(name, func(t *testing.T) {
			f := newCheckoutFixture(t, client)
			f.fill(t, "sess-1")
			if _, err := f.svc.Handoff(context.Background(), "sess-1"); !errors.Is(err, ErrCheckoutNotConfigured) {
				t.Fatalf("want ErrCheckoutNotConfigured got %v", err)
			}
		})
	}
}

func TestCheckoutDeliverIsIdempotent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := newCheckoutFixture(t, NewHTTPCheckoutClient(config.CheckoutConfig{Endpoint: server.URL}))
	f.fill(t, "sess-1")
	snapshot, err := f.svc.Handoff(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("handoff failed: %v", err)
	}
	if err := f.svc.Deliver(context.Background(), snapshot.HandoffNo); err != nil {
		t.Fatalf("redeliver failed: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("delivered handoff should not be sent again, calls=%d", calls)
	}
	if err := f.svc.Deliver(context.Background(), "HO-MISSING"); !errors.Is(err, ErrHandoffNotFound) {
		t.Fatalf("want ErrHandoffNotFound got %v", err)
	}
}

func TestCheckoutListBySession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := newCheckoutFixture(t, NewHTTPCheckoutClient(config.CheckoutConfig{Endpoint: server.URL}))
	f.fill(t, "sess-1")
	first, _ := f.svc.Handoff(context.Background(), "sess-1")
	second, _ := f.svc.Handoff(context.Background(), "sess-1")

	items, total, err := f.svc.ListBySession(context.Background(), "sess-1", 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(items) != 2 || items[0].HandoffNo != second.HandoffNo || items[1].HandoffNo != first.HandoffNo {
		t.Fatalf("handoffs should be newest first, got %+v", items)
	}
	if _, _, err := f.svc.ListBySession(context.Background(), "", 1, 10); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("want ErrSessionInvalid got %v", err)
	}
}

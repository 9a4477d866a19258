package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/tiffin-next/internal/provider"
	"github.com/tiffin-next/internal/service"

	"github.com/hibiken/asynq"
)

func TestHandoffOutcome(t *testing.T) {
	if err := handoffOutcome("HO1", nil); err != nil {
		t.Fatalf("success should ack, got %v", err)
	}
	if err := handoffOutcome("HO1", service.ErrHandoffNotFound); err != nil {
		t.Fatalf("missing handoff should ack, got %v", err)
	}

	err := handoffOutcome("HO1", service.ErrCheckoutNotConfigured)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("not configured should skip retry, got %v", err)
	}

	cause := errors.New("connection reset")
	err = handoffOutcome("HO1", cause)
	if !errors.Is(err, cause) || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient failure should be retried, got %v", err)
	}
}

func TestHandleCheckoutHandoffRejectsBadPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	for _, body := range []string{`not-json`, `{"handoff_no":"  "}`} {
		err := consumer.handleCheckoutHandoff(context.Background(), asynq.NewTask("checkout:handoff", []byte(body)))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("payload %q should skip retry, got %v", body, err)
		}
	}
}

func TestHandleCheckoutHandoffWithoutService(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	err := consumer.handleCheckoutHandoff(context.Background(), asynq.NewTask("checkout:handoff", []byte(`{"handoff_no":"HO1"}`)))
	if err != nil {
		t.Fatalf("missing service should ack, got %v", err)
	}
}

func TestRegisterNilSafe(t *testing.T) {
	var consumer *Consumer
	consumer.Register(asynq.NewServeMux())
	NewConsumer(&provider.Container{}).Register(nil)
}

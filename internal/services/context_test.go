package services_test

import (
	"context"
	"testing"

	"vidaq/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemID(ctx, 42)
	ctx = services.WithFingerprint(ctx, "2f1c0b8e-2a1c-5c39-9a57-6e3f8f2b1a10")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
	if fp, ok := services.FingerprintFromContext(ctx); !ok || fp != "2f1c0b8e-2a1c-5c39-9a57-6e3f8f2b1a10" {
		t.Fatalf("unexpected fingerprint: %v %v", fp, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithFingerprint(ctx, "")
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.FingerprintFromContext(ctx); ok {
		t.Fatal("expected no fingerprint value")
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id value")
	}
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("expected no item id value")
	}
}

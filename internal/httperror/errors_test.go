package httperror

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/jobs"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/provider"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/token"
)

func TestFromErrorMapping(t *testing.T) {
	apiErr := FromError(&provider.ExhaustedError{Failures: map[string]string{"groq": "timeout"}})
	if apiErr == nil || apiErr.Code != ErrorCodeUpstreamUnavailable || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected upstream unavailable with 502")
	}
	if apiErr.Details["providers"] == nil {
		t.Fatalf("expected provider failure details")
	}

	apiErr = FromError(provider.ErrNoProviders)
	if apiErr == nil || apiErr.Code != ErrorCodeConfig {
		t.Fatalf("expected config error for missing providers")
	}

	apiErr = FromError(token.ErrMissingSigningKey)
	if apiErr == nil || apiErr.Code != ErrorCodeConfig || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected config error for missing signing key")
	}

	apiErr = FromError(jobs.ErrJobNotFound)
	if apiErr == nil || apiErr.Code != ErrorCodeNotFound || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected not found with 404")
	}

	apiErr = FromError(kvstore.ErrStoreDisabled)
	if apiErr == nil || apiErr.Code != ErrorCodeStoreUnavailable || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected store unavailable with 503")
	}

	apiErr = FromError(context.DeadlineExceeded)
	if apiErr == nil || apiErr.Code != ErrorCodeUpstreamTimeout {
		t.Fatalf("expected timeout error")
	}
}

func TestNewInsufficientCredits(t *testing.T) {
	err := NewInsufficientCredits(decimal.NewFromFloat(0.5))
	if err.Status != http.StatusPaymentRequired {
		t.Fatalf("expected 402 status, got: %d", err.Status)
	}
	if err.Details["balance"] != "0.500" {
		t.Fatalf("expected balance detail, got: %+v", err.Details)
	}
}

func TestNewConflictingFields(t *testing.T) {
	err := NewConflictingFields("set", "delta")
	if err.Status != http.StatusBadRequest || err.Code != ErrorCodeConflictingFields {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestResponseIncludesRequestID(t *testing.T) {
	status, payload := Response(NewMissingField("id"), "req-1")
	if status != 400 {
		t.Fatalf("unexpected status: %d", status)
	}
	if payload.RequestID == nil || *payload.RequestID != "req-1" {
		t.Fatalf("expected request id")
	}
}

func TestNewMissingField(t *testing.T) {
	err := NewMissingField("username")
	if err == nil {
		t.Fatalf("expected non-nil error")
	}
	if err.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 status, got: %d", err.Status)
	}
	if err.Code != ErrorCodeMissingField {
		t.Fatalf("expected missing field error code")
	}
}

func TestNewInvalidInput(t *testing.T) {
	err := NewInvalidInput("must be positive")
	if err == nil {
		t.Fatalf("expected non-nil error")
	}
	if err.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 status, got: %d", err.Status)
	}
}

func TestNewValidationError(t *testing.T) {
	originalErr := errors.New("field validation failed")
	err := NewValidationError(originalErr)
	if err == nil {
		t.Fatalf("expected non-nil error")
	}
	// NewValidationError 는 422 Unprocessable Entity 반환
	if err.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 status, got: %d", err.Status)
	}
}

func TestNewInternalError(t *testing.T) {
	err := NewInternalError("something went wrong")
	if err == nil {
		t.Fatalf("expected non-nil error")
	}
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got: %d", err.Status)
	}
	if err.Code != ErrorCodeInternal {
		t.Fatalf("expected internal error code")
	}
}

func TestAPIErrorError(t *testing.T) {
	err := NewMissingField("test")
	msg := err.Error()
	if msg == "" {
		t.Fatalf("expected non-empty error message")
	}
}

func TestFromErrorNil(t *testing.T) {
	apiErr := FromError(nil)
	if apiErr != nil {
		t.Fatalf("expected nil for nil input")
	}
}

func TestFromErrorGeneric(t *testing.T) {
	genericErr := errors.New("some generic error")
	apiErr := FromError(genericErr)
	if apiErr == nil {
		t.Fatalf("expected non-nil error")
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 for generic error")
	}
}

func TestResponseWithEmptyRequestID(t *testing.T) {
	status, payload := Response(NewInternalError("test"), "")
	if status != 500 {
		t.Fatalf("unexpected status: %d", status)
	}
	if payload.RequestID != nil {
		t.Fatalf("expected nil request id for empty string")
	}
}

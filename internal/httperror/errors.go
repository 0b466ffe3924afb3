package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/jobs"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/provider"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/token"
)

// ErrorCode 는 API 오류 코드다.
type ErrorCode string

const (
	// ErrorCodeInternal 는 내부 오류 코드다.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeValidation 는 검증 오류 코드다.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeUnauthorized 는 인증 오류 코드다.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeMissingIdentity 는 식별자 미해석 코드다.
	ErrorCodeMissingIdentity ErrorCode = "MISSING_IDENTITY"
	// ErrorCodeConflictingFields 는 상호 배타 필드 동시 지정 코드다.
	ErrorCodeConflictingFields ErrorCode = "CONFLICTING_FIELDS"
	// ErrorCodeInsufficientCredits 는 잔액 부족 코드다.
	ErrorCodeInsufficientCredits ErrorCode = "INSUFFICIENT_CREDITS"
	// ErrorCodeUpstreamUnavailable 는 전 제공자 실패 코드다.
	ErrorCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrorCodeUpstreamTimeout 는 제공자 타임아웃 코드다.
	ErrorCodeUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	// ErrorCodeConfig 는 서버 설정 오류 코드다.
	ErrorCodeConfig ErrorCode = "CONFIG_ERROR"
	// ErrorCodeNotFound 는 리소스 미존재 코드다.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeStoreUnavailable 는 저장소 비활성 코드다.
	ErrorCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrorCodeHTTPRateLimit 는 요청 제한 오류 코드다.
	ErrorCodeHTTPRateLimit ErrorCode = "HTTP_RATE_LIMIT"
	// ErrorCodeInvalidInput 는 입력 오류 코드다.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeMissingField 는 필드 누락 코드다.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
)

// ErrorResponse 는 API 오류 응답 본문이다.
type ErrorResponse struct {
	ErrorCode string         `json:"error_code"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	RequestID *string        `json:"request_id"`
	Details   map[string]any `json:"details"`
}

// Error 는 내부 표준 오류 타입이다.
type Error struct {
	Code    ErrorCode
	Status  int
	Type    string
	Message string
	Details map[string]any
}

// Error 는 오류 메시지를 반환한다.
func (e *Error) Error() string {
	return e.Message
}

// Response 는 오류를 HTTP 응답으로 변환한다.
func Response(err error, requestID string) (int, ErrorResponse) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError("unknown error")
	}

	var requestIDPtr *string
	if requestID != "" {
		requestIDPtr = &requestID
	}

	return apiErr.Status, ErrorResponse{
		ErrorCode: string(apiErr.Code),
		ErrorType: apiErr.Type,
		Message:   apiErr.Message,
		RequestID: requestIDPtr,
		Details:   apiErr.Details,
	}
}

// FromError 는 오류를 내부 오류 타입으로 변환한다.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var exhausted *provider.ExhaustedError
	if errors.As(err, &exhausted) {
		return NewUpstreamUnavailable(exhausted)
	}

	if errors.Is(err, provider.ErrNoProviders) {
		return NewConfigError("No AI providers configured")
	}

	if errors.Is(err, token.ErrMissingSigningKey) {
		return NewConfigError("Token signing key not configured")
	}

	if errors.Is(err, jobs.ErrJobNotFound) {
		return NewNotFound("job")
	}

	if errors.Is(err, kvstore.ErrNotFound) {
		return NewNotFound("resource")
	}

	if errors.Is(err, kvstore.ErrStoreDisabled) {
		return NewStoreUnavailable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewUpstreamTimeout("Upstream request timed out")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}

	return NewInternalError(err.Error())
}

// NewInternalError 는 내부 오류를 생성한다.
func NewInternalError(message string) *Error {
	return &Error{
		Code:    ErrorCodeInternal,
		Status:  http.StatusInternalServerError,
		Type:    "InternalError",
		Message: message,
		Details: nil,
	}
}

// NewValidationError 는 검증 오류를 생성한다.
func NewValidationError(err error) *Error {
	return &Error{
		Code:    ErrorCodeValidation,
		Status:  http.StatusUnprocessableEntity,
		Type:    "ValidationError",
		Message: "Input validation failed",
		Details: validationDetails(err),
	}
}

// NewMissingField 는 누락 필드 오류를 생성한다.
func NewMissingField(field string) *Error {
	return &Error{
		Code:    ErrorCodeMissingField,
		Status:  http.StatusBadRequest,
		Type:    "MissingFieldError",
		Message: fmt.Sprintf("Field '%s' required", field),
		Details: map[string]any{"field": field},
	}
}

// NewInvalidInput 는 입력 오류를 생성한다.
func NewInvalidInput(message string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Status:  http.StatusBadRequest,
		Type:    "InvalidInputError",
		Message: message,
		Details: nil,
	}
}

// NewConflictingFields 는 상호 배타 필드 오류를 생성한다.
func NewConflictingFields(first string, second string) *Error {
	return &Error{
		Code:    ErrorCodeConflictingFields,
		Status:  http.StatusBadRequest,
		Type:    "ConflictingFieldsError",
		Message: fmt.Sprintf("Fields '%s' and '%s' are mutually exclusive", first, second),
		Details: map[string]any{"fields": []string{first, second}},
	}
}

// NewMissingIdentity 는 식별자 미해석 오류를 생성한다.
func NewMissingIdentity() *Error {
	return &Error{
		Code:    ErrorCodeMissingIdentity,
		Status:  http.StatusBadRequest,
		Type:    "MissingIdentityError",
		Message: "Could not resolve caller identity",
		Details: nil,
	}
}

// NewUnauthorized 는 인증 오류를 생성한다.
func NewUnauthorized(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeUnauthorized,
		Status:  http.StatusUnauthorized,
		Type:    "UnauthorizedError",
		Message: "Invalid admin key",
		Details: details,
	}
}

// NewRateLimitExceeded 는 요청 제한 오류를 생성한다.
func NewRateLimitExceeded(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeHTTPRateLimit,
		Status:  http.StatusTooManyRequests,
		Type:    "HTTPRateLimitExceededError",
		Message: "Rate limit exceeded",
		Details: details,
	}
}

// NewInsufficientCredits 는 잔액 부족 오류를 생성한다. 현재 잔액을 상세에 담는다.
func NewInsufficientCredits(balance decimal.Decimal) *Error {
	return &Error{
		Code:    ErrorCodeInsufficientCredits,
		Status:  http.StatusPaymentRequired,
		Type:    "InsufficientCreditsError",
		Message: "Insufficient credit balance",
		Details: map[string]any{"balance": balance.StringFixed(3)},
	}
}

// NewUpstreamUnavailable 는 전 제공자 실패 오류를 생성한다.
// 제공자별 실패 사유를 상세에 담아 요청 오류와 구분할 수 있게 한다.
func NewUpstreamUnavailable(exhausted *provider.ExhaustedError) *Error {
	var details map[string]any
	if exhausted != nil {
		details = map[string]any{"providers": exhausted.Failures}
	}
	return &Error{
		Code:    ErrorCodeUpstreamUnavailable,
		Status:  http.StatusBadGateway,
		Type:    "UpstreamUnavailableError",
		Message: "All AI providers failed",
		Details: details,
	}
}

// NewUpstreamTimeout 는 제공자 타임아웃 오류를 생성한다.
func NewUpstreamTimeout(message string) *Error {
	return &Error{
		Code:    ErrorCodeUpstreamTimeout,
		Status:  http.StatusGatewayTimeout,
		Type:    "UpstreamTimeoutError",
		Message: message,
		Details: nil,
	}
}

// NewConfigError 는 서버 설정 오류를 생성한다.
func NewConfigError(message string) *Error {
	return &Error{
		Code:    ErrorCodeConfig,
		Status:  http.StatusInternalServerError,
		Type:    "ConfigError",
		Message: message,
		Details: nil,
	}
}

// NewNotFound 는 리소스 미존재 오류를 생성한다.
func NewNotFound(resource string) *Error {
	return &Error{
		Code:    ErrorCodeNotFound,
		Status:  http.StatusNotFound,
		Type:    "NotFoundError",
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]any{"resource": resource},
	}
}

// NewStoreUnavailable 는 저장소 비활성 오류를 생성한다.
func NewStoreUnavailable() *Error {
	return &Error{
		Code:    ErrorCodeStoreUnavailable,
		Status:  http.StatusServiceUnavailable,
		Type:    "StoreUnavailableError",
		Message: "Persistent store is not available",
		Details: nil,
	}
}

// FieldError 는 필드 오류 상세 정보다.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func validationDetails(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, validationErr := range validationErrors {
			fields = append(fields, FieldError{
				Field:   validationErr.Field(),
				Message: validationErr.Error(),
				Value:   validationErr.Value(),
			})
		}
		return map[string]any{"errors": fields}
	}

	return map[string]any{
		"errors": []FieldError{
			{
				Field:   "body",
				Message: err.Error(),
				Value:   nil,
			},
		},
	}
}

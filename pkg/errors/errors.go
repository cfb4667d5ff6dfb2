package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeBusy         Code = "RESOURCE_BUSY"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// Domain failure kinds surfaced by the ordering core.
const (
	CodeItemNotFound        Code = "ITEM_NOT_FOUND"
	CodeEmptyCart           Code = "EMPTY_CART"
	CodeCouponNotFound      Code = "COUPON_NOT_FOUND"
	CodeCouponNotApplicable Code = "COUPON_NOT_APPLICABLE"
	CodeMinimumOrderNotMet  Code = "MINIMUM_ORDER_NOT_MET"
	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodeIllegalTransition   Code = "ILLEGAL_TRANSITION"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
	},
	CodeBusy: {
		HTTPStatus:    http.StatusConflict,
		Retryable:     true,
		PublicMessage: "resource busy, retry shortly",
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:     http.StatusTooManyRequests,
		Retryable:      true,
		PublicMessage:  "too many requests",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeItemNotFound: {
		HTTPStatus:     http.StatusNotFound,
		PublicMessage:  "menu item not found",
		DetailsAllowed: true,
	},
	CodeEmptyCart: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "cart is empty",
	},
	CodeCouponNotFound: {
		HTTPStatus:     http.StatusNotFound,
		PublicMessage:  "coupon not found",
		DetailsAllowed: true,
	},
	CodeCouponNotApplicable: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "coupon not applicable to seller",
		DetailsAllowed: true,
	},
	CodeMinimumOrderNotMet: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "minimum order amount not met",
		DetailsAllowed: true,
	},
	CodeInsufficientFunds: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "insufficient wallet balance",
		DetailsAllowed: true,
	},
	CodeIllegalTransition: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "order status transition not allowed",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether any typed error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

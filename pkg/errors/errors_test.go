package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeBusy, status: http.StatusConflict, publicMsg: "resource busy, retry shortly", retryable: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDomainCodesMapToStatuses(t *testing.T) {
	tests := map[Code]int{
		CodeItemNotFound:        http.StatusNotFound,
		CodeEmptyCart:           http.StatusUnprocessableEntity,
		CodeCouponNotFound:      http.StatusNotFound,
		CodeCouponNotApplicable: http.StatusUnprocessableEntity,
		CodeMinimumOrderNotMet:  http.StatusUnprocessableEntity,
		CodeInsufficientFunds:   http.StatusUnprocessableEntity,
		CodeIllegalTransition:   http.StatusConflict,
	}
	for code, status := range tests {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("code %s expected status %d got %d", code, status, got)
		}
		if MetadataFor(code).Retryable {
			t.Fatalf("code %s should not be retryable", code)
		}
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeInsufficientFunds, "balance too low")
	wrapped := fmt.Errorf("placing order: %w", inner)

	if !IsCode(wrapped, CodeInsufficientFunds) {
		t.Fatalf("expected IsCode to find insufficient funds in chain")
	}
	if IsCode(wrapped, CodeEmptyCart) {
		t.Fatalf("unexpected match for empty cart")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil error should never match")
	}
}

func TestDumpCapturesChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "load wallet")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
}

func TestDumpExtractsPostgresDetail(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "coupons_code_key", TableName: "coupons"}
	dump := Dump(Wrap(CodeDependency, fmt.Errorf("insert coupon: %w", pgxErr), "create coupon"))
	if dump.PG == nil || dump.PG.Constraint != "coupons_code_key" {
		t.Fatalf("expected pgx detail, got %+v", dump.PG)
	}
	if fields := dump.LogFields(); fields["pg_code"] != "23505" || fields["error_code"] != CodeDependency {
		t.Fatalf("unexpected log fields %v", fields)
	}

	pqErr := &pq.Error{Code: "23514", Table: "orders"}
	if dump := Dump(pqErr); dump.PG == nil || dump.PG.Code != "23514" || dump.PG.Table != "orders" {
		t.Fatalf("expected pq detail, got %+v", dump.PG)
	}

	if dump := Dump(New(CodeEmptyCart, "cart is empty")); dump.PG != nil {
		t.Fatalf("plain errors carry no pg detail")
	}
	if _, ok := Dump(New(CodeEmptyCart, "x")).LogFields()["pg_code"]; ok {
		t.Fatalf("pg fields must be omitted without pg detail")
	}
}

package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

// RequestIDHeader is set on the response by the request id middleware before
// any handler runs, so error bodies can echo it.
const RequestIDHeader = "X-Request-Id"

// publicMessageCodes surface the typed error message to the client instead
// of the generic metadata message.
var publicMessageCodes = map[pkgerrors.Code]struct{}{
	pkgerrors.CodeValidation:          {},
	pkgerrors.CodeForbidden:           {},
	pkgerrors.CodeUnauthorized:        {},
	pkgerrors.CodeNotFound:            {},
	pkgerrors.CodeConflict:            {},
	pkgerrors.CodeBusy:                {},
	pkgerrors.CodeIdempotency:         {},
	pkgerrors.CodeRateLimit:           {},
	pkgerrors.CodeItemNotFound:        {},
	pkgerrors.CodeEmptyCart:           {},
	pkgerrors.CodeCouponNotFound:      {},
	pkgerrors.CodeCouponNotApplicable: {},
	pkgerrors.CodeMinimumOrderNotMet:  {},
	pkgerrors.CodeInsufficientFunds:   {},
	pkgerrors.CodeIllegalTransition:   {},
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteNoContent acknowledges a mutation that has nothing to return.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if _, ok := publicMessageCodes[typed.Code()]; ok {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:      string(typed.Code()),
			Message:   msg,
			Retryable: meta.Retryable,
			RequestID: w.Header().Get(RequestIDHeader),
		},
	}

	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}

	if logg != nil {
		fields := pkgerrors.Dump(err).LogFields()
		fields["http_status"] = meta.HTTPStatus

		ctx = logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}

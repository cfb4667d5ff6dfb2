package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/foodhall-backend/api/responses"
	pkgerrors "github.com/angelmondragon/foodhall-backend/pkg/errors"
	"github.com/angelmondragon/foodhall-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/foodhall-backend/pkg/redis"
	"github.com/angelmondragon/foodhall-backend/pkg/types"
)

const (
	idempotencyHeader = "Idempotency-Key"

	walletIdempotencyTTL = 7 * 24 * time.Hour
	adminIdempotencyTTL  = 24 * time.Hour
	// inFlightTTL bounds how long a crashed handler can hold a key.
	inFlightTTL = 2 * time.Minute
)

// idempotentRoutes are path.Match patterns; "*" spans one path segment.
var idempotentRoutes = []struct {
	pattern string
	ttl     time.Duration
}{
	{"/api/v1/orders", walletIdempotencyTTL},
	{"/api/v1/orders/*/cancel", walletIdempotencyTTL},
	{"/api/v1/wallet/deposit", walletIdempotencyTTL},
	{"/api/v1/wallet/withdraw", walletIdempotencyTTL},
	{"/api/v1/admin/wallet/*/bonus", adminIdempotencyTTL},
	{"/api/v1/admin/orders/*/assign", adminIdempotencyTTL},
}

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	IdempotencyKey(scope, id string) string
}

const (
	recordPending  = "pending"
	recordComplete = "complete"
)

type idempotencyRecord struct {
	State       string `json:"state"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Idempotency guards the money-moving POST routes. The first request with a
// given Idempotency-Key reserves it, runs, and stores its response; later
// requests with the same key and body get that response replayed. A retry
// that arrives while the first is still running is rejected. Responses the
// client is told to retry (5xx, 429, retryable error codes) release the key.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(scopeFor(r), clientKey)

			pending, _ := json.Marshal(idempotencyRecord{State: recordPending, RequestHash: requestHash})
			reserved, err := store.SetNX(ctx, key, string(pending), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayExisting(ctx, store, logg, w, key, requestHash)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.statusOrOK()
			if retryableResponse(status, rec.body.Bytes()) {
				if _, delErr := store.DelIfValue(context.WithoutCancel(ctx), key, string(pending)); delErr != nil {
					logError(ctx, logg, "release idempotency key", delErr)
				}
				return
			}

			final, _ := json.Marshal(idempotencyRecord{
				State:       recordComplete,
				RequestHash: requestHash,
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
			})
			if setErr := store.Set(context.WithoutCancel(ctx), key, string(final), ttl); setErr != nil {
				logError(ctx, logg, "persist idempotency record", setErr)
			}
		})
	}
}

func replayExisting(ctx context.Context, store idempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, requestHash string) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		// The holder released or expired between SetNX and Get.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeBusy, "request with this idempotency key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.State != recordComplete {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeBusy, "request with this idempotency key is still in progress"))
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency body"))
		return
	}
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set("Idempotent-Replay", "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(decoded)
}

// scopeFor ties a client key to the caller and route so two users, or one
// user on two routes, never collide.
func scopeFor(r *http.Request) string {
	return strings.Join([]string{
		strconv.FormatInt(UserIDFromContext(r.Context()), 10),
		r.Method,
		canonicalPath(r.URL.Path),
	}, "|")
}

// canonicalPath drops the trailing slash chi tolerates on route matches.
func canonicalPath(urlPath string) string {
	if len(urlPath) > 1 {
		return strings.TrimSuffix(urlPath, "/")
	}
	return urlPath
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// retryableResponse reports whether a captured response must not be kept as
// the key's final outcome.
func retryableResponse(status int, body []byte) bool {
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return true
	}
	if status < http.StatusBadRequest {
		return false
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.Error.Retryable
}

func routeTTL(method, urlPath string) (time.Duration, bool) {
	urlPath = canonicalPath(urlPath)
	if method != http.MethodPost || urlPath == "" {
		return 0, false
	}
	for _, route := range idempotentRoutes {
		if ok, _ := path.Match(route.pattern, urlPath); ok {
			return route.ttl, true
		}
	}
	return 0, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/application"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

const (
	headerRequestID   = "X-Request-Id"
	headerActorRole   = "X-Actor-Role"
	headerIdempotency = "Idempotency-Key"
)

// requestIDMiddleware echoes the caller's request id, minting one for reads. Deposits,
// verifications and refunds must carry their own so retries can be correlated.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
		if requestID == "" {
			if isMutatingMethod(r.Method) {
				writeError(w, http.StatusBadRequest, "missing_request_id", headerRequestID+" is required for mutating operations", "")
				return
			}
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID)))
	})
}

func isMutatingMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error(), requestIDFromContext(r.Context()))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// actorFromRequest reads the gateway-verified subject from the bearer token. An "admin:"
// subject may act on any escrow; everyone else is a user, and the system role is reserved
// for the worker.
func actorFromRequest(r *http.Request) (application.Actor, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return application.Actor{}, errors.New("missing bearer token")
	}
	subject := strings.TrimSpace(token)
	role := "user"
	if rest, isAdmin := strings.CutPrefix(subject, "admin:"); isAdmin {
		subject, role = rest, "admin"
	} else {
		subject = strings.TrimPrefix(subject, "user:")
	}
	if subject == "" {
		return application.Actor{}, errors.New("empty bearer token")
	}
	if role == "admin" && strings.EqualFold(strings.TrimSpace(r.Header.Get(headerActorRole)), "user") {
		role = "user"
	}
	return application.Actor{
		SubjectID:      subject,
		Role:           role,
		RequestID:      requestIDFromContext(r.Context()),
		IdempotencyKey: strings.TrimSpace(r.Header.Get(headerIdempotency)),
	}, nil
}

func actorFromContext(ctx context.Context) application.Actor {
	actor, _ := ctx.Value(actorKey).(application.Actor)
	return actor
}

func requestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

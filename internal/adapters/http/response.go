package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   err.Error(),
			RequestID: requestIDFromContext(r.Context()),
			Details:   map[string]string{"kind": domain.KindOf(err)},
		},
	})
}

func mapDomainError(err error) (status int, code string) {
	if errors.Is(err, domain.ErrDependencyUnavailable) {
		return http.StatusServiceUnavailable, "dependency_unavailable"
	}
	switch domain.KindOf(err) {
	case "":
		return http.StatusOK, ""
	case domain.KindValidation:
		return http.StatusBadRequest, "invalid_input"
	case domain.KindInvalidAmount:
		return http.StatusBadRequest, "invalid_amount"
	case domain.KindInvalidParty:
		return http.StatusBadRequest, "invalid_party"
	case domain.KindFileUnavailable:
		return http.StatusUnprocessableEntity, "file_unavailable"
	case domain.KindUnauthorized:
		return http.StatusForbidden, "forbidden"
	case domain.KindNotFound:
		return http.StatusNotFound, "not_found"
	case domain.KindAlreadyFunded:
		return http.StatusConflict, "already_funded"
	case domain.KindInvalidState:
		return http.StatusConflict, "invalid_state"
	case domain.KindConflict:
		return http.StatusConflict, "conflict"
	case domain.KindVerificationTimedOut:
		return http.StatusGatewayTimeout, "verification_timed_out"
	case domain.KindSettlementFailed:
		return http.StatusBadGateway, "settlement_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

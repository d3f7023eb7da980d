package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
)

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

func (h *Handler) createEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CreateEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	escrow, err := h.service.CreateEscrow(r.Context(), actor, application.CreateEscrowInput{
		ClientID:     strings.TrimSpace(req.ClientID),
		FreelancerID: strings.TrimSpace(req.FreelancerID),
		Currency:     strings.ToUpper(strings.TrimSpace(req.Currency)),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", contracts.NewEscrowResponse(escrow))
}

func (h *Handler) getEscrow(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	escrow, err := h.service.GetEscrow(r.Context(), actor, chi.URLParam(r, "escrow_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.NewEscrowResponse(escrow))
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	escrow, err := h.service.DepositFunds(r.Context(), actor, application.DepositInput{
		EscrowID: chi.URLParam(r, "escrow_id"),
		Amount:   req.Amount,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.NewEscrowResponse(escrow))
}

func (h *Handler) quoteFees(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var amount int64
	if raw := strings.TrimSpace(r.URL.Query().Get("amount")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeDomainError(w, r, fmt.Errorf("%w: amount must be an integer in minor units", domain.ErrInvalidAmount))
			return
		}
		if parsed <= 0 {
			writeDomainError(w, r, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidAmount))
			return
		}
		amount = parsed
	}
	fees, err := h.service.QuoteFees(r.Context(), actor, chi.URLParam(r, "escrow_id"), amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", fees)
}

// verify accepts a multipart upload and answers with one of the three decision bodies.
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := actorFromContext(ctx)
	maxBytes := h.service.Config().MaxFileBytes

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDecisionError(w, fmt.Errorf("%w: submission exceeds %d bytes", domain.ErrInvalidInput, maxBytes))
			return
		}
		writeDecisionError(w, fmt.Errorf("%w: malformed multipart body: %v", domain.ErrInvalidInput, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDecisionError(w, fmt.Errorf("%w: file is required", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	var escrowAmount *int64
	if raw := strings.TrimSpace(r.FormValue("escrow_amount")); raw != "" {
		parsed, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			writeDecisionError(w, fmt.Errorf("%w: escrow_amount must be an integer in minor units", domain.ErrInvalidAmount))
			return
		}
		escrowAmount = &parsed
	}

	stored, err := h.storage.Save(ctx, header.Filename, file, maxBytes)
	if err != nil {
		writeDecisionError(w, err)
		return
	}
	defer func() { _ = h.storage.Discard(context.WithoutCancel(ctx), stored.Ref) }()

	out, err := h.service.VerifySubmission(ctx, actor, application.VerifyInput{
		EscrowID:        chi.URLParam(r, "escrow_id"),
		TaskDescription: r.FormValue("task_description"),
		EscrowAmount:    escrowAmount,
		FileName:        header.Filename,
		MIMEHint:        header.Header.Get("Content-Type"),
		SizeBytes:       stored.SizeBytes,
		ContentRef:      stored.Ref,
	})
	if err != nil {
		writeDecisionError(w, err)
		return
	}
	if !out.Result.Verified {
		writeJSON(w, http.StatusOK, contracts.RejectedDecision{
			Success:         false,
			Status:          contracts.DecisionRejected,
			ConfidenceScore: out.Result.ConfidenceScore,
			Feedback:        out.Result.Feedback,
			Issues:          out.Result.Issues,
		})
		return
	}
	decision := contracts.VerifiedDecision{
		Success:           true,
		Status:            contracts.DecisionVerified,
		ConfidenceScore:   out.Result.ConfidenceScore,
		Feedback:          out.Result.Feedback,
		Strengths:         out.Result.Strengths,
		SettlementReceipt: out.Receipt,
	}
	if out.Fees != nil {
		decision.FeeBreakdown = *out.Fees
	}
	writeJSON(w, http.StatusOK, decision)
}

func writeDecisionError(w http.ResponseWriter, err error) {
	status, _ := mapDomainError(err)
	writeJSON(w, status, contracts.ErrorDecision{
		Success: false,
		Status:  contracts.DecisionError,
		Message: err.Error(),
		Kind:    domain.KindOf(err),
	})
}

func (h *Handler) listVerifications(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 20)
	items, err := h.service.ListVerifications(r.Context(), actor, chi.URLParam(r, "escrow_id"), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{"items": items})
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out, err := h.service.ReturnFunds(r.Context(), actor, application.RefundInput{
		EscrowID: chi.URLParam(r, "escrow_id"),
		Cancel:   req.Cancel,
		Reason:   strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"escrow":             contracts.NewEscrowResponse(out.Escrow),
		"fee_breakdown":      out.Fees,
		"settlement_receipt": out.Receipt,
	})
}

func (h *Handler) getSettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	settlement, err := h.service.GetSettlement(r.Context(), actor, chi.URLParam(r, "escrow_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", settlement)
}

func (h *Handler) retrySettlement(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	receipt, err := h.service.RetrySettlement(r.Context(), actor, chi.URLParam(r, "escrow_id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", receipt)
}

func parseIntOrDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

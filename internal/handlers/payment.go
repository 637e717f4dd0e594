package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/schoolpay/backend/internal/models"
	"github.com/schoolpay/backend/internal/services"
)

type PaymentHandler struct {
	payments    *services.PaymentService
	scheduler   *services.SchedulerService
	jwtSecret   []byte
	frontendURL string
}

func NewPaymentHandler(payments *services.PaymentService, scheduler *services.SchedulerService, jwtSecret, frontendURL string) *PaymentHandler {
	return &PaymentHandler{
		payments:    payments,
		scheduler:   scheduler,
		jwtSecret:   []byte(jwtSecret),
		frontendURL: frontendURL,
	}
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	claims, err := authenticate(r, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req struct {
		SchoolID    string             `json:"school_id"`
		StudentInfo models.StudentInfo `json:"student_info"`
		Amount      float64            `json:"amount"`
		GatewayName string             `json:"gateway_name"`
		Description string             `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.SchoolID) == "" {
		writeError(w, http.StatusBadRequest, "school_id is required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.StudentInfo.Name == "" || req.StudentInfo.ID == "" {
		writeError(w, http.StatusBadRequest, "student name and id are required")
		return
	}
	if !strings.Contains(req.StudentInfo.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid student email")
		return
	}

	// The trustee comes from the token, never from the body.
	result, err := h.payments.CreatePayment(r.Context(), services.CreatePaymentInput{
		SchoolID:    req.SchoolID,
		TrusteeID:   trusteeID(claims),
		StudentInfo: req.StudentInfo,
		Amount:      req.Amount,
		GatewayName: req.GatewayName,
		Description: req.Description,
	})
	if err != nil {
		log.Printf("Failed to create payment: %v", err)
		writeError(w, http.StatusBadRequest, "Failed to create payment request: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	result, err := h.payments.HandleWebhook(r.Context(), payload)
	if err != nil {
		log.Printf("Webhook processing failed: %v", err)
		writeError(w, http.StatusBadRequest, "Failed to process webhook")
		return
	}

	// Unknown orders are acknowledged with success:false so the gateway
	// stops retrying.
	writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) CheckPaymentStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.jwtSecret); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	collectRequestID := mux.Vars(r)["collectRequestId"]
	schoolID := r.URL.Query().Get("school_id")
	if schoolID == "" {
		writeError(w, http.StatusBadRequest, "school_id is required")
		return
	}

	status, err := h.payments.CheckPaymentStatus(r.Context(), collectRequestID, schoolID)
	if err != nil {
		log.Printf("Failed to check payment status for %s: %v", collectRequestID, err)
		writeError(w, http.StatusBadGateway, "Failed to check payment status: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  status.Status,
		"amount":  status.Amount,
		"details": status.Details,
		"jwt":     status.JWT,
	})
}

func timeoutMinutesParam(r *http.Request, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get("timeout_minutes"))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func (h *PaymentHandler) CancelAbandonedPayments(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.jwtSecret); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.payments.CancelAbandonedPayments(r.Context(), timeoutMinutesParam(r, 30))
	if err != nil {
		log.Printf("Failed to cancel abandoned payments: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to cancel abandoned payments")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) ForceCancelAbandoned(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.jwtSecret); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.payments.ForceCancelAbandonedPayments(r.Context(), timeoutMinutesParam(r, 5))
	if err != nil {
		log.Printf("Failed to force cancel abandoned payments: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to force cancel abandoned payments")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.jwtSecret); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	customOrderID := mux.Vars(r)["customOrderId"]
	if customOrderID == "" {
		writeError(w, http.StatusBadRequest, "order id is required")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional; a missing reason falls back to a default.
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := h.payments.CancelPaymentByOrderID(r.Context(), customOrderID, req.Reason)
	if err != nil {
		log.Printf("Failed to cancel payment %s: %v", customOrderID, err)
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) DebugPendingPayments(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.jwtSecret); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	report, err := h.payments.DebugPendingPayments(r.Context(), timeoutMinutesParam(r, 30))
	if err != nil {
		log.Printf("Failed to inspect pending payments: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to inspect pending payments")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *PaymentHandler) TriggerScheduler(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.jwtSecret); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	result, err := h.scheduler.TriggerManualCleanup(r.Context(), timeoutMinutesParam(r, 30))
	if err != nil {
		log.Printf("Manual cleanup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to run cleanup")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

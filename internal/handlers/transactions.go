package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/schoolpay/backend/internal/services"
)

type TransactionsHandler struct {
	service   *services.TransactionsService
	jwtSecret []byte
}

func NewTransactionsHandler(service *services.TransactionsService, jwtSecret string) *TransactionsHandler {
	return &TransactionsHandler{service: service, jwtSecret: []byte(jwtSecret)}
}

func parsePageParams(r *http.Request) (page, limit int) {
	page = 1
	limit = 10
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v >= 1 && v <= 100 {
		limit = v
	}
	return page, limit
}

func (h *TransactionsHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	claims, err := authenticate(r, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	page, limit := parsePageParams(r)
	q := r.URL.Query()

	result, err := h.service.GetTransactions(r.Context(), services.TransactionQuery{
		Page:      page,
		Limit:     limit,
		Sort:      q.Get("sort"),
		Order:     q.Get("order"),
		Status:    q.Get("status"),
		SchoolID:  q.Get("school_id"),
		Gateway:   q.Get("gateway"),
		TrusteeID: trusteeID(claims),
	})
	if err != nil {
		log.Printf("Failed to fetch transactions: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *TransactionsHandler) GetTransactionsBySchool(w http.ResponseWriter, r *http.Request) {
	claims, err := authenticate(r, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	schoolID := mux.Vars(r)["schoolId"]
	if schoolID == "" {
		writeError(w, http.StatusBadRequest, "school id is required")
		return
	}

	page, limit := parsePageParams(r)
	result, err := h.service.GetTransactionsBySchool(r.Context(), schoolID, trusteeID(claims), page, limit)
	if err != nil {
		log.Printf("Failed to fetch transactions for school %s: %v", schoolID, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *TransactionsHandler) GetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	claims, err := authenticate(r, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	customOrderID := mux.Vars(r)["customOrderId"]
	if customOrderID == "" {
		writeError(w, http.StatusBadRequest, "order id is required")
		return
	}

	detail, err := h.service.GetTransactionStatus(r.Context(), customOrderID, trusteeID(claims))
	if err != nil {
		log.Printf("Failed to fetch transaction status for %s: %v", customOrderID, err)
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch transaction status")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *TransactionsHandler) GetSchools(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.jwtSecret); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	ids, err := h.service.GetSchoolIDs(r.Context())
	if err != nil {
		log.Printf("Failed to fetch school ids: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch schools")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"school_ids": ids})
}

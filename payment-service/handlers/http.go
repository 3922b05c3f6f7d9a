package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sagamart/order-system/payment-service/application"
	"github.com/sagamart/order-system/payment-service/domain"
)

// PaymentHandlers contains payment HTTP handlers
type PaymentHandlers struct {
	settlePayment *application.SettlePayment
	getPayment    *application.GetPayment
	listPayments  *application.ListPayments
}

// NewPaymentHandlers creates new payment handlers
func NewPaymentHandlers(
	settlePayment *application.SettlePayment,
	getPayment *application.GetPayment,
	listPayments *application.ListPayments,
) *PaymentHandlers {
	return &PaymentHandlers{
		settlePayment: settlePayment,
		getPayment:    getPayment,
		listPayments:  listPayments,
	}
}

type settleRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ApprovePayment handles payment approval requests
func (h *PaymentHandlers) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, application.SettleActionApprove)
}

// RejectPayment handles payment rejection requests
func (h *PaymentHandlers) RejectPayment(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, application.SettleActionReject)
}

func (h *PaymentHandlers) settle(w http.ResponseWriter, r *http.Request, action string) {
	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		http.Error(w, "Payment ID is required", http.StatusBadRequest)
		return
	}

	var req settleRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	response, err := h.settlePayment.Execute(r.Context(), &application.SettlePaymentCommand{
		PaymentID: paymentID,
		Action:    action,
		Reason:    req.Reason,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrAlreadySettled) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if strings.Contains(err.Error(), "invalid command") || strings.Contains(err.Error(), "invalid payment ID") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetPayment handles payment retrieval requests
func (h *PaymentHandlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, &application.GetPaymentQuery{PaymentID: chi.URLParam(r, "id")})
}

// GetPaymentByOrder handles payment retrieval by order ID
func (h *PaymentHandlers) GetPaymentByOrder(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, &application.GetPaymentQuery{OrderID: chi.URLParam(r, "orderId")})
}

func (h *PaymentHandlers) get(w http.ResponseWriter, r *http.Request, query *application.GetPaymentQuery) {
	response, err := h.getPayment.Execute(r.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "invalid payment ID") || strings.Contains(err.Error(), "invalid order ID") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListPayments handles payment listing requests
func (h *PaymentHandlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, application.PaymentFilterAll)
}

// ListPendingPayments handles pending payment listing requests
func (h *PaymentHandlers) ListPendingPayments(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, application.PaymentFilterPending)
}

// ListRetryablePayments handles retryable payment listing requests
func (h *PaymentHandlers) ListRetryablePayments(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, application.PaymentFilterRetryable)
}

func (h *PaymentHandlers) list(w http.ResponseWriter, r *http.Request, filter string) {
	response, err := h.listPayments.Execute(r.Context(), &application.ListPaymentsQuery{
		Filter: filter,
		Limit:  parseIntParam(r, "limit"),
		Offset: parseIntParam(r, "offset"),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers payment routes
func (h *PaymentHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Get("/pending", h.ListPendingPayments)
			r.Get("/retryable", h.ListRetryablePayments)
			r.Get("/{id}", h.GetPayment)
			r.Get("/order/{orderId}", h.GetPaymentByOrder)
			r.Post("/{id}/approve", h.ApprovePayment)
			r.Post("/{id}/reject", h.RejectPayment)
		})
	})
}

func parseIntParam(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sagamart/order-system/order-service/application"
	"github.com/sagamart/order-system/order-service/domain"
)

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	placeOrder *application.PlaceOrder
	getOrder   *application.GetOrder
	listOrders *application.ListOrders
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(
	placeOrder *application.PlaceOrder,
	getOrder *application.GetOrder,
	listOrders *application.ListOrders,
) *OrderHandlers {
	return &OrderHandlers{
		placeOrder: placeOrder,
		getOrder:   getOrder,
		listOrders: listOrders,
	}
}

// PlaceOrder handles order creation requests
func (h *OrderHandlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd application.PlaceOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.placeOrder.Execute(r.Context(), &cmd)
	if err != nil {
		if strings.Contains(err.Error(), "invalid command") || strings.Contains(err.Error(), "invalid product ID") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// GetOrder handles order retrieval requests
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.getOrder.Execute(r.Context(), &application.GetOrderQuery{OrderID: orderID})
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "invalid order ID") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListOrders handles order listing requests
func (h *OrderHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := &application.ListOrdersQuery{
		CustomerEmail: chi.URLParam(r, "email"),
		Limit:         parseIntParam(r, "limit"),
		Offset:        parseIntParam(r, "offset"),
	}

	response, err := h.listOrders.Execute(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
			r.Get("/customer/{email}", h.ListOrders)
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

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sagamart/order-system/inventory-service/application"
	"github.com/sagamart/order-system/inventory-service/domain"
)

// InventoryHandlers contains inventory HTTP handlers
type InventoryHandlers struct {
	createInventory *application.CreateInventory
	getInventory    *application.GetInventory
}

// NewInventoryHandlers creates new inventory handlers
func NewInventoryHandlers(
	createInventory *application.CreateInventory,
	getInventory *application.GetInventory,
) *InventoryHandlers {
	return &InventoryHandlers{
		createInventory: createInventory,
		getInventory:    getInventory,
	}
}

// CreateInventory handles inventory creation requests
func (h *InventoryHandlers) CreateInventory(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateInventoryCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.createInventory.Execute(r.Context(), &cmd)
	if err != nil {
		if errors.Is(err, domain.ErrInventoryExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
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

// GetInventory handles inventory retrieval requests
func (h *InventoryHandlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		http.Error(w, "Product ID is required", http.StatusBadRequest)
		return
	}

	response, err := h.getInventory.Execute(r.Context(), &application.GetInventoryQuery{ProductID: productID})
	if err != nil {
		if errors.Is(err, domain.ErrInventoryNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "invalid product ID") {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers inventory routes
func (h *InventoryHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/inventories", func(r chi.Router) {
			r.Post("/", h.CreateInventory)
			r.Get("/{productId}", h.GetInventory)
		})
	})
}

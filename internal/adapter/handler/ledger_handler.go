package handler

import (
	"net/http"

	"github.com/rl1809/supply-ledger/internal/core/policy"
	"github.com/rl1809/supply-ledger/internal/core/service"
)

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in service.CreateOrderInput
	if !decode(w, r, &in) {
		return
	}
	order, err := h.ledger.CreateOrder(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Order created successfully",
		"order":   order,
	})
}

func (h *HTTPHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in service.UpdateOrderInput
	if !decode(w, r, &in) {
		return
	}
	order, err := h.ledger.UpdateOrder(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Order updated successfully",
		"order":   order,
	})
}

func (h *HTTPHandler) SupplierOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ledger.SupplierOrders(r.Context(), currentUser(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ListDeliveries returns the caller's own transactions, or every transaction
// grouped by type for managers and administrators.
func (h *HTTPHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	txns, err := h.ledger.Deliveries(r.Context(), user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if policy.Unrestricted(user.Role) {
		writeJSON(w, http.StatusOK, service.GroupByType(txns))
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *HTTPHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in service.DeliveryStatusInput
	if !decode(w, r, &in) {
		return
	}
	delivery, err := h.ledger.UpdateDeliveryStatus(r.Context(), currentUser(r.Context()), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Delivery status updated successfully",
		"delivery": delivery,
	})
}

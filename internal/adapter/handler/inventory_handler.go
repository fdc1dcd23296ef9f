package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/rl1809/supply-ledger/internal/adapter/report"
	"github.com/rl1809/supply-ledger/internal/core/service"
)

func (h *HTTPHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) AddInventory(w http.ResponseWriter, r *http.Request) {
	var in service.AddInventoryInput
	if !decode(w, r, &in) {
		return
	}
	item, err := h.inventory.Add(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Product added successfully",
		"inventory": item,
	})
}

func (h *HTTPHandler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in service.UpdateInventoryInput
	if !decode(w, r, &in) {
		return
	}
	item, err := h.inventory.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Product updated successfully",
		"inventory": item,
	})
}

func (h *HTTPHandler) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.inventory.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted successfully")
}

func (h *HTTPHandler) ExportInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// buffered so a failed render can still become a 500
	var buf bytes.Buffer
	if err := report.WriteInventory(&buf, items); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.InventoryFileName(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *HTTPHandler) LowStockAlert(w http.ResponseWriter, r *http.Request) {
	rep, err := h.inventory.LowStock(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/core/policy"
	"github.com/rl1809/supply-ledger/internal/core/service"
	"github.com/rl1809/supply-ledger/internal/metrics"
)

// ReadinessCheck reports whether the backing stores can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Inventory *service.InventoryService
	Ledger    *service.LedgerService
}

type HTTPHandler struct {
	auth      *service.AuthService
	users     *service.UserService
	inventory *service.InventoryService
	ledger    *service.LedgerService
	metrics   *metrics.Collector
	logger    *zap.Logger
	ready     ReadinessCheck
}

func NewHTTPHandler(s Services, collector *metrics.Collector, logger *zap.Logger, ready ReadinessCheck) *HTTPHandler {
	return &HTTPHandler{
		auth:      s.Auth,
		users:     s.Users,
		inventory: s.Inventory,
		ledger:    s.Ledger,
		metrics:   collector,
		logger:    logger,
		ready:     ready,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *mux.Router) {
	r.Use(h.instrument)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/users-for-dropdown", h.UsersForDropdown).Methods(http.MethodGet)

	r.HandleFunc("/logout", h.guard(policy.Logout, h.Logout)).Methods(http.MethodPost)
	r.HandleFunc("/register", h.guard(policy.RegisterUser, h.Register)).Methods(http.MethodPost)
	r.HandleFunc("/update-user/{id:[0-9]+}", h.guard(policy.UpdateUser, h.UpdateUser)).Methods(http.MethodPut)
	r.HandleFunc("/delete-user/{id:[0-9]+}", h.guard(policy.DeleteUser, h.DeleteUser)).Methods(http.MethodDelete)

	r.HandleFunc("/inventory", h.guard(policy.ListInventory, h.ListInventory)).Methods(http.MethodGet)
	r.HandleFunc("/inventory", h.guard(policy.AddInventory, h.AddInventory)).Methods(http.MethodPost)
	r.HandleFunc("/inventory/export", h.guard(policy.ExportInventory, h.ExportInventory)).Methods(http.MethodGet)
	r.HandleFunc("/inventory/{id:[0-9]+}", h.guard(policy.UpdateInventory, h.UpdateInventory)).Methods(http.MethodPut)
	r.HandleFunc("/inventory/{id:[0-9]+}", h.guard(policy.DeleteInventory, h.DeleteInventory)).Methods(http.MethodDelete)
	r.HandleFunc("/low-stock-alert", h.guard(policy.LowStockAlert, h.LowStockAlert)).Methods(http.MethodGet)

	r.HandleFunc("/orders", h.guard(policy.ListOrders, h.ListOrders)).Methods(http.MethodGet)
	r.HandleFunc("/orders", h.guard(policy.CreateOrder, h.CreateOrder)).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id:[0-9]+}", h.guard(policy.UpdateOrder, h.UpdateOrder)).Methods(http.MethodPut)
	r.HandleFunc("/supplier-orders", h.guard(policy.SupplierOrders, h.SupplierOrders)).Methods(http.MethodGet)
	r.HandleFunc("/getSupplierOrders", h.guard(policy.SupplierOrders, h.SupplierOrders)).Methods(http.MethodGet)
	r.HandleFunc("/deliveries", h.guard(policy.ListDeliveries, h.ListDeliveries)).Methods(http.MethodGet)
	r.HandleFunc("/deliveries/{id:[0-9]+}", h.guard(policy.UpdateDelivery, h.UpdateDelivery)).Methods(http.MethodPut)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps service and domain errors onto status codes. Anything
// unrecognised is logged and reported as a bare 500.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrUnauthenticated):
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthenticated")
	case errors.Is(err, domain.ErrForbidden):
		writeErrorMessage(w, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrStockOverflow):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into dst, writing a 400 and returning false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// pathID parses the {id} route variable, writing a 404 and returning false when it does not fit an int64.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}

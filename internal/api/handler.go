package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"saydalia/m/domain"
	"saydalia/m/internal/activity"
	"saydalia/m/internal/auth"
	"saydalia/m/internal/catalog"
	"saydalia/m/internal/config"
	"saydalia/m/internal/invoicing"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	catalog    *catalog.Service
	invoicing  *invoicing.Service
	activities *activity.Logger
	secret     string
	adminUser  string
	adminHash  []byte
}

// New constructs a Handler.
func New(catalogSvc *catalog.Service, invoicingSvc *invoicing.Service, activities *activity.Logger, cfg config.Config) *Handler {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}
	return &Handler{
		catalog:    catalogSvc,
		invoicing:  invoicingSvc,
		activities: activities,
		secret:     cfg.Secret,
		adminUser:  cfg.AdminUser,
		adminHash:  hash,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Post("/auth/login", h.login)

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.listMedicines)
			r.Post("/", h.createMedicine)
			r.Put("/{id}", h.updateMedicine)
			r.Delete("/{id}", h.deleteMedicine)
		})

		pr.Post("/purchase-invoice", h.postPurchaseInvoice)
		pr.Post("/sale-invoice", h.postSaleInvoice)
		pr.Get("/invoices", h.listInvoices)
		pr.Get("/activities", h.listActivities)
		pr.Get("/init-data", h.initData)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if req.Username != h.adminUser || bcrypt.CompareHashAndPassword(h.adminHash, []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.secret, req.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	respondData(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		claims, err := auth.ParseToken(h.secret, tokenString)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), claims.Username)))
	})
}

// Medicine handlers

type createMedicineRequest struct {
	Name     string `json:"name"`
	Quantity *int   `json:"quantity"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

type updateMedicineRequest struct {
	Name     string `json:"name"`
	Quantity *int   `json:"quantity"`
	Category string `json:"category"`
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.catalog.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondData(w, http.StatusOK, medicines)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req createMedicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	medicine, err := h.catalog.Create(r.Context(), catalog.CreateParams{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Category: req.Category,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, medicine)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	var req updateMedicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	medicine, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), catalog.UpdatePatch{
		Name:     req.Name,
		Quantity: req.Quantity,
		Category: req.Category,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, medicine)
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "تم حذف الدواء بنجاح")
}

// Invoice handlers

type purchaseInvoiceRequest struct {
	Items        []domain.InvoiceItem `json:"items"`
	Total        decimal.Decimal      `json:"total"`
	SupplierName string               `json:"supplierName"`
}

type saleInvoiceRequest struct {
	Items        []domain.InvoiceItem `json:"items"`
	Total        decimal.Decimal      `json:"total"`
	CustomerName string               `json:"customerName"`
}

func (h *Handler) postPurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	var req purchaseInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	invoice, err := h.invoicing.PostPurchase(r.Context(), req.Items, req.Total, req.SupplierName)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, invoice)
}

func (h *Handler) postSaleInvoice(w http.ResponseWriter, r *http.Request) {
	var req saleInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	invoice, err := h.invoicing.PostSale(r.Context(), req.Items, req.Total, req.CustomerName)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, invoice)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoicing.ListInvoices(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondData(w, http.StatusOK, invoices)
}

// Query handlers

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activities.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondData(w, http.StatusOK, activities)
}

func (h *Handler) initData(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.InitSampleData(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondMessage(w, http.StatusOK, "تم تهيئة البيانات بنجاح")
}

// Helpers

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &vErr):
		respondError(w, http.StatusBadRequest, vErr.Msg)
	case errors.As(err, &stockErr):
		respondError(w, http.StatusBadRequest, stockErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, map[string]interface{}{"success": true, "data": data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"success": true, "message": message})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": message})
}

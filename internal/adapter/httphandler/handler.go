package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/service"
)

type SessionOpener interface {
	OpenSession(ctx context.Context, serviceID, supervisorName string) (service.SessionView, error)
	Supervisors(ctx context.Context) ([]service.SupervisorView, error)
}

type CatalogBrowser interface {
	BrowseCatalog(sessionID, category string, page int) (domain.CatalogPage, error)
}

type CartEditor interface {
	Cart(sessionID string) (service.CartView, error)
	AddItem(sessionID, code string) (service.CartView, error)
	ChangeQuantity(sessionID, code string, quantity int) (service.CartView, error)
	RemoveItem(sessionID, code string) (service.CartView, error)
}

type OrderFinalizer interface {
	FinalizeOrder(ctx context.Context, sessionID, customer string) (domain.Remito, error)
	EmailRemito(ctx context.Context, sessionID string) error
}

type SessionsHandler struct {
	opener SessionOpener
}

func RegisterSessions(mux *http.ServeMux, opener SessionOpener) {
	h := SessionsHandler{opener}
	mux.HandleFunc("POST /v1/sessions", h.PostSession)
	mux.HandleFunc("GET /v1/supervisors", h.GetSupervisors)
}

func (h SessionsHandler) PostSession(w http.ResponseWriter, r *http.Request) {
	const op = "SessionsHandler.PostSession"
	log := slog.With("op", op)

	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	view, err := h.opener.OpenSession(r.Context(), req.ServiceID, req.Supervisor)
	if err != nil {
		writeDomainError(w, err)
		log.Error("failed to open session", "err", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(view))
	log.Info("session opened", "sessionID", view.SessionID)
}

func (h SessionsHandler) GetSupervisors(w http.ResponseWriter, r *http.Request) {
	const op = "SessionsHandler.GetSupervisors"
	log := slog.With("op", op)

	vs, err := h.opener.Supervisors(r.Context())
	if err != nil {
		writeDomainError(w, err)
		log.Error("failed to list supervisors", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, toSupervisors(vs))
}

type CatalogHandler struct {
	browser CatalogBrowser
}

func RegisterCatalog(mux *http.ServeMux, browser CatalogBrowser) {
	h := CatalogHandler{browser}
	mux.HandleFunc("GET /v1/sessions/{id}/catalog", h.GetCatalog)
}

func (h CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetCatalog"
	log := slog.With("op", op)

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}
	category := r.URL.Query().Get("category")

	p, err := h.browser.BrowseCatalog(r.PathValue("id"), category, page)
	if err != nil {
		writeDomainError(w, err)
		log.Warn("failed to browse catalog", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, toCatalogPageResponse(p))
}

type CartHandler struct {
	editor CartEditor
}

func RegisterCart(mux *http.ServeMux, editor CartEditor) {
	h := CartHandler{editor}
	mux.HandleFunc("GET /v1/sessions/{id}/cart", h.GetCart)
	mux.HandleFunc("POST /v1/sessions/{id}/cart/items", h.PostItem)
	mux.HandleFunc("PUT /v1/sessions/{id}/cart/items/{code}", h.PutItem)
	mux.HandleFunc("DELETE /v1/sessions/{id}/cart/items/{code}", h.DeleteItem)
}

func (h CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.GetCart"
	log := slog.With("op", op)

	view, err := h.editor.Cart(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		log.Warn("failed to read cart", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h CartHandler) PostItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostItem"
	log := slog.With("op", op)

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	view, err := h.editor.AddItem(r.PathValue("id"), req.Code)
	if err != nil {
		writeDomainError(w, err)
		log.Warn("failed to add item", "code", req.Code, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h CartHandler) PutItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PutItem"
	log := slog.With("op", op)

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	view, err := h.editor.ChangeQuantity(
		r.PathValue("id"), r.PathValue("code"), req.Quantity,
	)
	if err != nil {
		writeDomainError(w, err)
		log.Warn("failed to change quantity", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h CartHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteItem"
	log := slog.With("op", op)

	view, err := h.editor.RemoveItem(r.PathValue("id"), r.PathValue("code"))
	if err != nil {
		writeDomainError(w, err)
		log.Warn("failed to remove item", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

type OrdersHandler struct {
	finalizer OrderFinalizer
}

func RegisterOrders(mux *http.ServeMux, finalizer OrderFinalizer) {
	h := OrdersHandler{finalizer}
	mux.HandleFunc("POST /v1/sessions/{id}/order", h.PostOrder)
	mux.HandleFunc("POST /v1/sessions/{id}/order/email", h.PostOrderEmail)
}

func (h OrdersHandler) PostOrder(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.PostOrder"
	log := slog.With("op", op)

	var req FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	remito, err := h.finalizer.FinalizeOrder(
		r.Context(), r.PathValue("id"), req.Customer,
	)
	if err != nil {
		writeDomainError(w, err)
		log.Warn("failed to finalize order", "err", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRemitoResponse(remito))
	log.Info("order finalized", "number", remito.Number)
}

func (h OrdersHandler) PostOrderEmail(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.PostOrderEmail"
	log := slog.With("op", op)

	if err := h.finalizer.EmailRemito(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		log.Warn("failed to email remito", "err", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps the user-correctable cart errors to client
// statuses. None of them is fatal.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, domain.ErrNotInCart):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrMissingCustomer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrNoRemito),
		errors.Is(err, domain.ErrFinalizeInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"remitpool/internal/compliance"
	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
	"remitpool/pkg/platform/httputil"
	adminmw "remitpool/pkg/platform/middleware/admin"
	"remitpool/pkg/requestcontext"
)

// Service defines the compliance operations the HTTP layer exposes.
type Service interface {
	ComplianceStatus(ctx context.Context, account id.AccountID) (compliance.Status, error)

	AddToAllowlist(ctx context.Context, caller, account id.AccountID, customLimit uint64) error
	BatchAddToAllowlist(ctx context.Context, caller id.AccountID, accounts []id.AccountID) (int, error)
	RemoveFromAllowlist(ctx context.Context, caller, account id.AccountID) error
	AddToBlocklist(ctx context.Context, caller, account id.AccountID) error
	RemoveFromBlocklist(ctx context.Context, caller, account id.AccountID) error
	UpdateCustomLimit(ctx context.Context, caller, account id.AccountID, limit uint64) error
	SetDefaultDailyLimit(ctx context.Context, caller id.AccountID, limit uint64) error
	SetMinimumAmount(ctx context.Context, caller id.AccountID, minimum uint64) error
}

// Handler wires compliance endpoints to the compliance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a compliance handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public compliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/compliance/accounts/{account}", h.HandleStatus)
}

// RegisterAdmin mounts the admin compliance endpoints; callers are expected
// to guard the router with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/compliance/allowlist", h.HandleAllowlist)
	r.Post("/compliance/allowlist/batch", h.HandleBatchAllowlist)
	r.Delete("/compliance/allowlist", h.HandleDelist)
	r.Post("/compliance/blocklist", h.HandleBlocklist)
	r.Delete("/compliance/blocklist", h.HandleUnblock)
	r.Put("/compliance/accounts/{account}/limit", h.HandleCustomLimit)
	r.Put("/compliance/default-limit", h.HandleDefaultLimit)
	r.Put("/compliance/minimum-amount", h.HandleMinimumAmount)
}

// HandleStatus handles GET /compliance/accounts/{account}.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.ComplianceStatus(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatus(status))
}

// HandleAllowlist handles POST /admin/compliance/allowlist.
func (h *Handler) HandleAllowlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.adminCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AllowlistRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.AddToAllowlist(ctx, caller, req.ParsedAccount(), req.CustomLimit); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "account allowlisted",
		"request_id", requestID,
		"caller", caller,
		"account", req.Account,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleBatchAllowlist handles POST /admin/compliance/allowlist/batch.
func (h *Handler) HandleBatchAllowlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.adminCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BatchAllowlistRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	added, err := h.service.BatchAddToAllowlist(ctx, caller, req.ParsedAccounts())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "accounts allowlisted",
		"request_id", requestID,
		"caller", caller,
		"requested", len(req.Accounts),
		"added", added,
	)
	httputil.WriteJSON(w, http.StatusOK, BatchResponse{Added: added})
}

// HandleDelist handles DELETE /admin/compliance/allowlist.
func (h *Handler) HandleDelist(w http.ResponseWriter, r *http.Request) {
	h.handleAccountOp(w, r, "account delisted", h.service.RemoveFromAllowlist)
}

// HandleBlocklist handles POST /admin/compliance/blocklist.
func (h *Handler) HandleBlocklist(w http.ResponseWriter, r *http.Request) {
	h.handleAccountOp(w, r, "account blocklisted", h.service.AddToBlocklist)
}

// HandleUnblock handles DELETE /admin/compliance/blocklist.
func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	h.handleAccountOp(w, r, "account unblocked", h.service.RemoveFromBlocklist)
}

func (h *Handler) handleAccountOp(w http.ResponseWriter, r *http.Request, msg string, op func(context.Context, id.AccountID, id.AccountID) error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.adminCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := op(ctx, caller, req.ParsedAccount()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, msg,
		"request_id", requestID,
		"caller", caller,
		"account", req.Account,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCustomLimit handles PUT /admin/compliance/accounts/{account}/limit.
func (h *Handler) HandleCustomLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.adminCaller(w, ctx)
	if !ok {
		return
	}
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CustomLimitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.UpdateCustomLimit(ctx, caller, account, req.Limit); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "custom daily limit updated",
		"request_id", requestID,
		"caller", caller,
		"account", account,
		"limit", req.Limit,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDefaultLimit handles PUT /admin/compliance/default-limit.
func (h *Handler) HandleDefaultLimit(w http.ResponseWriter, r *http.Request) {
	h.handleLimitOp(w, r, "default daily limit updated", h.service.SetDefaultDailyLimit)
}

// HandleMinimumAmount handles PUT /admin/compliance/minimum-amount.
func (h *Handler) HandleMinimumAmount(w http.ResponseWriter, r *http.Request) {
	h.handleLimitOp(w, r, "minimum amount updated", h.service.SetMinimumAmount)
}

func (h *Handler) handleLimitOp(w http.ResponseWriter, r *http.Request, msg string, op func(context.Context, id.AccountID, uint64) error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.adminCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[LimitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := op(ctx, caller, req.Value); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, msg,
		"request_id", requestID,
		"caller", caller,
		"value", req.Value,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminCaller(w http.ResponseWriter, ctx context.Context) (id.AccountID, bool) {
	caller, err := id.ParseAccountID(adminmw.GetCaller(ctx))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return caller, true
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
	"remitpool/pkg/platform/httputil"
	adminmw "remitpool/pkg/platform/middleware/admin"
	"remitpool/pkg/requestcontext"
)

// Service defines the resolver operations the HTTP layer exposes.
type Service interface {
	Register(ctx context.Context, hash id.IdentifierHash, wallet id.AccountID) error
	BatchRegister(ctx context.Context, hashes []id.IdentifierHash, wallets []id.AccountID) (int, error)
	Unregister(ctx context.Context, hash id.IdentifierHash) error
	UpdateWallet(ctx context.Context, hash id.IdentifierHash, wallet id.AccountID) error
	Resolve(ctx context.Context, hash id.IdentifierHash) (id.AccountID, error)
	ReverseLookup(ctx context.Context, wallet id.AccountID) (id.IdentifierHash, error)
}

// Handler wires resolver endpoints to the resolver service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a resolver handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public resolver endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/resolver/registrations/{hash}", h.HandleResolve)
	r.Get("/resolver/wallets/{account}", h.HandleReverseLookup)
}

// RegisterAdmin mounts the admin resolver endpoints; callers are expected to
// guard the router with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/resolver/registrations", h.HandleRegister)
	r.Post("/resolver/registrations/batch", h.HandleBatchRegister)
	r.Put("/resolver/registrations/{hash}", h.HandleUpdateWallet)
	r.Delete("/resolver/registrations/{hash}", h.HandleUnregister)
}

// HandleResolve handles GET /resolver/registrations/{hash}.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hash := id.IdentifierHash(chi.URLParam(r, "hash"))
	wallet, err := h.service.Resolve(ctx, hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"hash":   hash.String(),
		"wallet": wallet.String(),
	})
}

// HandleReverseLookup handles GET /resolver/wallets/{account}.
func (h *Handler) HandleReverseLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hash, err := h.service.ReverseLookup(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"hash":   hash.String(),
		"wallet": account.String(),
	})
}

// HandleRegister handles POST /admin/resolver/registrations.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := h.adminCaller(w, ctx); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.Register(ctx, req.ParsedHash(), req.ParsedWallet()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "identifier registered",
		"request_id", requestID,
		"wallet", req.Wallet,
	)
	w.WriteHeader(http.StatusCreated)
}

// HandleBatchRegister handles POST /admin/resolver/registrations/batch.
func (h *Handler) HandleBatchRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := h.adminCaller(w, ctx); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BatchRegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	registered, err := h.service.BatchRegister(ctx, req.ParsedHashes(), req.ParsedWallets())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "identifiers registered",
		"request_id", requestID,
		"requested", len(req.Hashes),
		"registered", registered,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"registered": registered})
}

// HandleUpdateWallet handles PUT /admin/resolver/registrations/{hash}.
func (h *Handler) HandleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := h.adminCaller(w, ctx); !ok {
		return
	}
	hash := id.IdentifierHash(chi.URLParam(r, "hash"))
	req, ok := httputil.DecodeAndPrepare[UpdateWalletRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.UpdateWallet(ctx, hash, req.ParsedWallet()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "registration repointed",
		"request_id", requestID,
		"wallet", req.Wallet,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnregister handles DELETE /admin/resolver/registrations/{hash}.
func (h *Handler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := h.adminCaller(w, ctx); !ok {
		return
	}
	hash := id.IdentifierHash(chi.URLParam(r, "hash"))
	if err := h.service.Unregister(ctx, hash); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "registration removed",
		"request_id", requestID,
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

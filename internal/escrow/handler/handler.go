package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"remitpool/internal/escrow"
	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
	"remitpool/pkg/platform/httputil"
	adminmw "remitpool/pkg/platform/middleware/admin"
	"remitpool/pkg/requestcontext"
)

// Service defines the ledger operations the HTTP layer exposes.
type Service interface {
	Create(ctx context.Context, creator, recipient id.AccountID, target uint64, expiresAt time.Time, annotation string, autoRelease bool) (id.RemittanceID, error)
	CreateByIdentifier(ctx context.Context, creator id.AccountID, hash id.IdentifierHash, target uint64, expiresAt time.Time, annotation string, autoRelease bool) (id.RemittanceID, error)
	Contribute(ctx context.Context, contributor id.AccountID, rid id.RemittanceID, amount uint64) (escrow.ContributionResult, error)
	Release(ctx context.Context, caller id.AccountID, rid id.RemittanceID) (escrow.ReleaseResult, error)
	Cancel(ctx context.Context, caller id.AccountID, rid id.RemittanceID) (uint64, error)
	ClaimExpiredRefund(ctx context.Context, caller id.AccountID, rid id.RemittanceID) (uint64, error)

	Get(ctx context.Context, rid id.RemittanceID) (escrow.View, error)
	ContributionOf(ctx context.Context, rid id.RemittanceID, contributor id.AccountID) (uint64, error)
	ListByCreator(ctx context.Context, account id.AccountID) ([]id.RemittanceID, error)
	ListByRecipient(ctx context.Context, account id.AccountID) ([]id.RemittanceID, error)
	NextID(ctx context.Context) (id.RemittanceID, error)
	FeeConfiguration(ctx context.Context) escrow.FeeConfig
	AutoReleaseEnabled(ctx context.Context) bool

	SetFeeCollector(ctx context.Context, caller, collector id.AccountID) error
	SetPlatformFee(ctx context.Context, caller id.AccountID, bps uint32) error
	SetAutoRelease(ctx context.Context, caller id.AccountID, enabled bool) error
}

// Handler wires escrow endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an escrow handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public escrow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/remittances", h.HandleCreate)
	r.Get("/remittances/{id}", h.HandleGet)
	r.Post("/remittances/{id}/contributions", h.HandleContribute)
	r.Get("/remittances/{id}/contributions/{account}", h.HandleContributionOf)
	r.Post("/remittances/{id}/release", h.HandleRelease)
	r.Post("/remittances/{id}/cancel", h.HandleCancel)
	r.Post("/remittances/{id}/refund", h.HandleClaimRefund)
	r.Get("/accounts/{account}/created", h.HandleListCreated)
	r.Get("/accounts/{account}/received", h.HandleListReceived)
	r.Get("/escrow/config", h.HandleConfig)
}

// RegisterAdmin mounts the admin escrow endpoints; callers are expected to
// guard the router with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/escrow/fee-collector", h.HandleSetFeeCollector)
	r.Put("/escrow/platform-fee", h.HandleSetPlatformFee)
	r.Put("/escrow/auto-release", h.HandleSetAutoRelease)
}

// HandleCreate handles POST /remittances.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	var (
		rid id.RemittanceID
		err error
	)
	if !req.ParsedHash().IsNil() {
		rid, err = h.service.CreateByIdentifier(ctx, req.ParsedCreator(), req.ParsedHash(), req.Target, req.ParsedExpiry(), req.Annotation, req.AutoRelease)
	} else {
		rid, err = h.service.Create(ctx, req.ParsedCreator(), req.ParsedRecipient(), req.Target, req.ParsedExpiry(), req.Annotation, req.AutoRelease)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "remittance creation failed",
			"request_id", requestID,
			"creator", req.Creator,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "remittance created",
		"request_id", requestID,
		"remittance_id", rid,
		"creator", req.Creator,
		"target_amount", req.Target,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateResponse{ID: uint64(rid)})
}

// HandleGet handles GET /remittances/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rid, err := id.ParseRemittanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.Get(ctx, rid)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(view))
}

// HandleContribute handles POST /remittances/{id}/contributions.
func (h *Handler) HandleContribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	rid, err := id.ParseRemittanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ContributeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Contribute(ctx, req.ParsedContributor(), rid, req.Amount)
	if err != nil {
		h.logger.WarnContext(ctx, "contribution failed",
			"request_id", requestID,
			"remittance_id", rid,
			"contributor", req.Contributor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "contribution accepted",
		"request_id", requestID,
		"remittance_id", rid,
		"contributor", req.Contributor,
		"amount", req.Amount,
		"new_total", result.NewTotal,
		"released", result.Released,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ContributionResponse{
		NewTotal: result.NewTotal,
		Released: result.Released,
		Payout:   result.Payout,
		Fee:      result.Fee,
	})
}

// HandleContributionOf handles GET /remittances/{id}/contributions/{account}.
func (h *Handler) HandleContributionOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rid, err := id.ParseRemittanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	amount, err := h.service.ContributionOf(ctx, rid, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ContributionOfResponse{
		Contributor: account.String(),
		Amount:      amount,
	})
}

// HandleRelease handles POST /remittances/{id}/release.
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	rid, err := id.ParseRemittanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CallerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Release(ctx, req.ParsedCaller(), rid)
	if err != nil {
		h.logger.WarnContext(ctx, "release failed",
			"request_id", requestID,
			"remittance_id", rid,
			"caller", req.Caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "remittance released",
		"request_id", requestID,
		"remittance_id", rid,
		"payout", result.Payout,
		"fee", result.Fee,
	)
	httputil.WriteJSON(w, http.StatusOK, ReleaseResponse{Payout: result.Payout, Fee: result.Fee})
}

// HandleCancel handles POST /remittances/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	rid, err := id.ParseRemittanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CallerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	refunded, err := h.service.Cancel(ctx, req.ParsedCaller(), rid)
	if err != nil {
		h.logger.WarnContext(ctx, "cancellation failed",
			"request_id", requestID,
			"remittance_id", rid,
			"caller", req.Caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "remittance cancelled",
		"request_id", requestID,
		"remittance_id", rid,
		"refunded", refunded,
	)
	httputil.WriteJSON(w, http.StatusOK, RefundResponse{Refunded: refunded})
}

// HandleClaimRefund handles POST /remittances/{id}/refund.
func (h *Handler) HandleClaimRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	rid, err := id.ParseRemittanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CallerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	refunded, err := h.service.ClaimExpiredRefund(ctx, req.ParsedCaller(), rid)
	if err != nil {
		h.logger.WarnContext(ctx, "expiry refund claim failed",
			"request_id", requestID,
			"remittance_id", rid,
			"caller", req.Caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "expiry refund claimed",
		"request_id", requestID,
		"remittance_id", rid,
		"caller", req.Caller,
		"refunded", refunded,
	)
	httputil.WriteJSON(w, http.StatusOK, RefundResponse{Refunded: refunded})
}

// HandleListCreated handles GET /accounts/{account}/created.
func (h *Handler) HandleListCreated(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.service.ListByCreator)
}

// HandleListReceived handles GET /accounts/{account}/received.
func (h *Handler) HandleListReceived(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.service.ListByRecipient)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, list func(context.Context, id.AccountID) ([]id.RemittanceID, error)) {
	ctx := r.Context()

	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ids, err := list(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(ids))
}

// HandleConfig handles GET /escrow/config.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	next, err := h.service.NextID(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fees := h.service.FeeConfiguration(ctx)
	httputil.WriteJSON(w, http.StatusOK, ConfigResponse{
		FeeCollector:   fees.Collector.String(),
		FeeBasisPoints: fees.BasisPoints,
		AutoRelease:    h.service.AutoReleaseEnabled(ctx),
		NextID:         uint64(next),
	})
}

// HandleSetFeeCollector handles PUT /admin/escrow/fee-collector.
func (h *Handler) HandleSetFeeCollector(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.adminCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetFeeCollectorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.SetFeeCollector(ctx, caller, req.ParsedCollector()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "fee collector updated",
		"request_id", requestID,
		"caller", caller,
		"collector", req.Collector,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetPlatformFee handles PUT /admin/escrow/platform-fee.
func (h *Handler) HandleSetPlatformFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.adminCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetPlatformFeeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.SetPlatformFee(ctx, caller, req.BasisPoints); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "platform fee updated",
		"request_id", requestID,
		"caller", caller,
		"basis_points", req.BasisPoints,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetAutoRelease handles PUT /admin/escrow/auto-release.
func (h *Handler) HandleSetAutoRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.adminCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetAutoReleaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.SetAutoRelease(ctx, caller, req.Enabled); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "auto release toggled",
		"request_id", requestID,
		"caller", caller,
		"enabled", req.Enabled,
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

// Package handler exposes the process registry and validation facade over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"processguard/internal/process/models"
	"processguard/internal/process/service"
	"processguard/internal/process/validator"
	"processguard/internal/restriction"
	"processguard/pkg/domain"
	dErrors "processguard/pkg/domain-errors"
	"processguard/pkg/platform/httputil"
	"processguard/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler needs.
type Service interface {
	CreateProcess(ctx context.Context, id domain.ProcessIdentifier, restrictions []restriction.Restriction) (*service.CreateResult, error)
	DisableProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) error
	GetProcess(ctx context.Context, id domain.ProcessIdentifier, version domain.ProcessVersion) (*models.Process, error)
	CurrentVersion(ctx context.Context, id domain.ProcessIdentifier) (domain.ProcessVersion, error)
	ListVersions(ctx context.Context, id domain.ProcessIdentifier) ([]*models.Process, error)
}

// Validator defines the validation facade the handler needs.
type Validator interface {
	Validate(ctx context.Context, fq domain.ProcessFullyQualifiedID, sender domain.AccountID, inputs, outputs []domain.ProcessIO) bool
	ValidateBatch(ctx context.Context, reqs []validator.Request) []bool
}

// Handler wires process endpoints to the lifecycle service and validator.
type Handler struct {
	service   Service
	validator Validator
	logger    *slog.Logger
}

func New(service Service, validator Validator, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// Register mounts the read and validation endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/processes/{id}/version", h.handleCurrentVersion)
	r.Get("/processes/{id}/versions", h.handleListVersions)
	r.Get("/processes/{id}/versions/{version}", h.handleGetProcess)
	r.Post("/processes/validate", h.handleValidate)
	r.Post("/processes/validate/batch", h.handleValidateBatch)
}

// RegisterAdmin mounts the lifecycle endpoints. The caller applies the
// authorization middleware to r.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/processes", h.handleCreateProcess)
	r.Post("/processes/{id}/versions/{version}/disable", h.handleDisableProcess)
}

func (h *Handler) handleCreateProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateProcessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.CreateProcess(ctx, domain.ProcessIdentifier(req.ID), req.Restrictions)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleDisableProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fq, err := parseFullyQualifiedID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DisableProcess(ctx, fq.ID, fq.Version); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	fq, err := parseFullyQualifiedID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.GetProcess(r.Context(), fq.ID, fq.Version)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProcessResponse(p))
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	id := domain.ProcessIdentifier(chi.URLParam(r, "id"))
	ps, err := h.service.ListVersions(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := VersionListResponse{ID: id, Versions: make([]ProcessResponse, 0, len(ps))}
	for _, p := range ps {
		resp.Versions = append(resp.Versions, toProcessResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCurrentVersion(w http.ResponseWriter, r *http.Request) {
	id := domain.ProcessIdentifier(chi.URLParam(r, "id"))
	version, err := h.service.CurrentVersion(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CurrentVersionResponse{ID: id, Version: version})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ValidateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	valid := h.validator.Validate(ctx, req.Process, req.Sender, req.Inputs, req.Outputs)
	httputil.WriteJSON(w, http.StatusOK, ValidateResponse{Valid: valid})
}

func (h *Handler) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ValidateBatchRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	results := h.validator.ValidateBatch(ctx, req.toValidator())
	httputil.WriteJSON(w, http.StatusOK, ValidateBatchResponse{Results: results})
}

func parseFullyQualifiedID(r *http.Request) (domain.ProcessFullyQualifiedID, error) {
	version, err := domain.ParseProcessVersion(chi.URLParam(r, "version"))
	if err != nil {
		return domain.ProcessFullyQualifiedID{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid process version")
	}
	return domain.ProcessFullyQualifiedID{
		ID:      domain.ProcessIdentifier(chi.URLParam(r, "id")),
		Version: version,
	}, nil
}

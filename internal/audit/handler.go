package audit

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/araxson/enorae-sub010/internal/platform/httpx"
	"github.com/araxson/enorae-sub010/internal/shared"
)

// TargetReader lists the trail of one audited entity.
type TargetReader interface {
	ListForTarget(ctx context.Context, entityType, entityID string) ([]Entry, error)
}

// Handler serves audit trails. Callers are expected to be behind a
// platform-admin guard.
type Handler struct {
	reader TargetReader
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(reader TargetReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reader: reader, logger: logger}
}

// MountRoutes registers the audit trail endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{type}/{id}", h.trail)
}

var auditedTargets = map[string]bool{TargetUserRole: true, "user": true}

func (h *Handler) trail(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "type")
	entityID := chi.URLParam(r, "id")
	if !auditedTargets[entityType] {
		httpx.RespondError(w, shared.Validation("unknown target type"))
		return
	}
	if entityID == "" || len(entityID) > 128 {
		httpx.RespondError(w, shared.Validation("invalid target id"))
		return
	}
	entries, err := h.reader.ListForTarget(r.Context(), entityType, entityID)
	if err != nil {
		h.logger.Error("list audit trail", slog.String("target_type", entityType), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.OK(w, http.StatusOK, entries)
}

package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"union-ledger/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Directory is the read side of the ledger used by the admin API.
type Directory interface {
	Ping(ctx context.Context) error
	GetEntityByCode(ctx context.Context, code string) (*store.Entity, error)
	ListEntities(ctx context.Context, limit, offset int) ([]store.Entity, error)
	ListDownstream(ctx context.Context, id string) ([]store.Entity, error)
	ListSessionsByEntity(ctx context.Context, entityID string, limit int) ([]store.SessionRecord, error)
	FindOpenCycle(ctx context.Context) (*store.Cycle, error)
	ListImportLogs(ctx context.Context, limit, offset int) ([]store.ImportLog, error)
}

const entitySessionLimit = 50

type AdminHandlers struct {
	dir Directory
}

func NewAdminHandlers(dir Directory) *AdminHandlers {
	return &AdminHandlers{dir: dir}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.dir.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) ImportLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, err := h.dir.ListImportLogs(r.Context(), limit, offset)
		if err != nil {
			log.Error().Err(err).Msg("list import logs")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) Entities() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, err := h.dir.ListEntities(r.Context(), limit, offset)
		if err != nil {
			log.Error().Err(err).Msg("list entities")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

// Entity returns one entity with its direct downstream and latest sessions.
func (h *AdminHandlers) Entity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		e, err := h.dir.GetEntityByCode(r.Context(), code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "entity_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		downstream, err := h.dir.ListDownstream(r.Context(), e.ID)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		sessions, err := h.dir.ListSessionsByEntity(r.Context(), e.ID, entitySessionLimit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entity":     e,
			"downstream": downstream,
			"sessions":   sessions,
		})
	}
}

func (h *AdminHandlers) OpenCycle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.dir.FindOpenCycle(r.Context())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "no_open_cycle")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(c)
	}
}

// Package handler holds the HTTP handlers of the resolve API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/repository"
	"github.com/clipfetch/clipfetch/internal/service"
)

// Resolver is the service surface the handlers need.
type Resolver interface {
	Resolve(ctx context.Context, text string) (*service.Resolution, error)
	History(ctx context.Context, query repository.HistoryQuery) ([]domain.ResolveRecord, int, error)
	HistoryEnabled() bool
}

// ResolveHandler handles link resolution requests.
type ResolveHandler struct {
	svc    Resolver
	logger *slog.Logger
}

// NewResolveHandler creates a resolve handler.
func NewResolveHandler(svc Resolver, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{svc: svc, logger: logger}
}

// ResolveRequest is the JSON request body. Text may be a bare URL or
// any text containing one.
type ResolveRequest struct {
	Text string `json:"text"`
}

// HistoryResponse contains a paginated history listing.
type HistoryResponse struct {
	Records []HistoryRecord `json:"records"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// HistoryRecord is one resolve history row.
type HistoryRecord struct {
	ID         string `json:"id"`
	Platform   string `json:"platform"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	PhotoCount int    `json:"photo_count"`
	HasVideo   bool   `json:"has_video"`
	CreatedAt  string `json:"created_at"`
}

// Resolve handles POST /api/v1/resolve.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		h.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	res, err := h.svc.Resolve(r.Context(), req.Text)
	if err != nil {
		status, message := mapError(err)
		if status >= 500 {
			h.logger.Error("resolve failed", "error", err)
		}
		h.writeError(w, status, message)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// History handles GET /api/v1/history.
func (h *ResolveHandler) History(w http.ResponseWriter, r *http.Request) {
	if !h.svc.HistoryEnabled() {
		h.writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	query := repository.HistoryQuery{
		Platform: domain.Platform(r.URL.Query().Get("platform")),
		Status:   r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		query.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		query.Offset, _ = strconv.Atoi(v)
	}

	records, total, err := h.svc.History(r.Context(), query)
	if err != nil {
		h.logger.Error("history query failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}

	resp := HistoryResponse{
		Records: make([]HistoryRecord, 0, len(records)),
		Total:   total,
		Limit:   query.Limit,
		Offset:  query.Offset,
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, HistoryRecord{
			ID:         rec.ID,
			Platform:   string(rec.Platform),
			URL:        rec.URL,
			Status:     rec.Status,
			Error:      rec.Error,
			PhotoCount: rec.PhotoCount,
			HasVideo:   rec.HasVideo,
			CreatedAt:  rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// mapError translates the error taxonomy into an HTTP status and a
// message safe to show the caller.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrLinkNotFound):
		return http.StatusUnprocessableEntity, "no supported link found in text"
	case errors.Is(err, domain.ErrNoMedia):
		return http.StatusNotFound, "the post has no downloadable media"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrMessageNotFound):
		return http.StatusNotFound, "the post could not be found"
	case errors.Is(err, domain.ErrEntityNotResolvable):
		return http.StatusNotFound, "the channel or username in the link does not exist"
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, "access to the post is restricted"
	case errors.Is(err, domain.ErrCredentialsMissing):
		return http.StatusServiceUnavailable, "this platform is not configured"
	case errors.Is(err, domain.ErrAuthenticationFailed), errors.Is(err, domain.ErrTokenAcquisition):
		return http.StatusBadGateway, "upstream authentication failed"
	case errors.Is(err, domain.ErrUpstreamTransient):
		return http.StatusBadGateway, "the upstream service is temporarily unavailable, try again"
	case errors.Is(err, domain.ErrUpstreamRejected), errors.Is(err, domain.ErrUpstreamMalformed):
		return http.StatusBadGateway, "the upstream service rejected the request"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *ResolveHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ResolveHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

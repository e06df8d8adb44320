package api

import (
	"encoding/json"
	"net/http"
	"time"

	"pollbox/internal/domain/poll"
	"pollbox/internal/platform/apperr"
)

type createPollRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	IsPublic    *bool    `json:"is_public"`
	ExpiresAt   *string  `json:"expires_at"`
	Options     []string `json:"options"`
}

// updatePollRequest keeps expires_at raw so an explicit null (clear the
// expiry) stays distinguishable from an absent field (leave unchanged).
type updatePollRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	IsPublic    *bool           `json:"is_public"`
	ExpiresAt   json.RawMessage `json:"expires_at,omitempty"`
	Options     []string        `json:"options"`
}

func parseExpiresAt(raw json.RawMessage) (t *time.Time, clear bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false, err
	}
	return &parsed, false, nil
}

// pollSummary carries the derived fields alongside the stored ones; they
// are recomputed for every response.
type pollSummary struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	CreatorID   int64      `json:"creator_id"`
	IsPublic    bool       `json:"is_public"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	TotalVotes  int64      `json:"total_votes"`
	IsExpired   bool       `json:"is_expired"`
	IsActive    bool       `json:"is_active"`
}

func toPollSummary(p *poll.Poll) pollSummary {
	return pollSummary{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		CreatorID:   p.CreatorID,
		IsPublic:    p.IsPublic,
		ExpiresAt:   p.ExpiresAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		TotalVotes:  p.TotalVotes,
		IsExpired:   p.IsExpired(),
		IsActive:    p.IsActive(),
	}
}

func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	expiresAt, err := parseTimePtr(req.ExpiresAt)
	if err != nil {
		errorResponse(w, apperr.BadRequest("validation_error", "expires_at must be an RFC3339 timestamp", err))
		return
	}

	p := &poll.Poll{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    isPublic,
		ExpiresAt:   expiresAt,
		CreatorID:   userIDFromCtx(r),
	}

	created, opts, err := h.pollSvc.Create(r.Context(), p, req.Options)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"poll":    toPollSummary(created),
		"options": opts,
	})
}

func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	f := poll.ListFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}

	polls, err := h.pollSvc.List(r.Context(), f)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaries(polls))
}

func (h *Handler) handleMyPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollSvc.ListByCreator(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaries(polls))
}

func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	p, opts, err := h.pollSvc.Get(r.Context(), id, userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll":    toPollSummary(p),
		"options": opts,
	})
}

func (h *Handler) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	expiresAt, clearExpiry, err := parseExpiresAt(req.ExpiresAt)
	if err != nil {
		errorResponse(w, apperr.BadRequest("validation_error", "expires_at must be an RFC3339 timestamp or null", err))
		return
	}

	p, opts, err := h.pollSvc.Update(r.Context(), id, userIDFromCtx(r), poll.UpdateInput{
		Title:          req.Title,
		Description:    req.Description,
		IsPublic:       req.IsPublic,
		ExpiresAt:      expiresAt,
		ClearExpiresAt: clearExpiry,
		Options:        req.Options,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll":    toPollSummary(p),
		"options": opts,
	})
}

func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	if err := h.pollSvc.Delete(r.Context(), id, userIDFromCtx(r)); err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSharePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	p, url, err := h.pollSvc.ShareURL(r.Context(), id, userIDFromCtx(r), h.shareBaseURL)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll_id":   p.ID,
		"title":     p.Title,
		"share_url": url,
	})
}

func toSummaries(polls []poll.Poll) []pollSummary {
	res := make([]pollSummary, 0, len(polls))
	for i := range polls {
		res = append(res, toPollSummary(&polls[i]))
	}
	return res
}

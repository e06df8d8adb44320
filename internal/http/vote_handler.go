package api

import (
	"encoding/json"
	"net/http"

	"pollbox/internal/platform/apperr"
	"pollbox/internal/worker"
)

type voteRequest struct {
	OptionID int64 `json:"option_id"`
}

// @Summary     Vote for an option
// @Description Authenticated callers vote by account, anonymous callers by
// @Description IP address. A repeat vote in the same poll moves the existing
// @Description vote to the new option instead of adding a second one.
// @Tags        votes
// @Accept      json
// @Param       id       path      int64        true  "Poll ID"
// @Param       request  body      voteRequest  true  "Vote payload"
// @Success     200      {object}  map[string]string
// @Failure     400      {object}  map[string]string  "invalid option or expired poll"
// @Failure     401      {object}  map[string]string  "no usable identity"
// @Failure     404      {object}  map[string]string  "poll absent or not visible"
// @Router      /api/v1/polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.OptionID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "option_id is required", nil))
		return
	}

	callerID := userIDFromCtx(r)
	ip := clientIP(r)

	if err := h.voteSvc.Cast(r.Context(), pollID, req.OptionID, callerID, ip); err != nil {
		errorResponse(w, err)
		return
	}

	voterType := "anonymous"
	if callerID != 0 {
		voterType = "user"
	}
	select {
	case h.voteCh <- worker.VoteEvent{PollID: pollID, OptionID: req.OptionID, VoterType: voterType}:
	default:
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "vote recorded successfully"})
}

// @Summary     Poll results
// @Tags        polls
// @Produce     json
// @Param       id   path     int64  true  "Poll ID"
// @Success     200  {object} map[string]any
// @Failure     404  {object} map[string]string  "poll absent or not visible"
// @Router      /api/v1/polls/{id}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	p, results, total, err := h.voteSvc.Results(r.Context(), pollID, userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"poll_id":     p.ID,
		"title":       p.Title,
		"is_active":   p.IsActive(),
		"total_votes": total,
		"options":     results,
	})
}

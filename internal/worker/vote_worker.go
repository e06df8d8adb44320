package worker

import (
	"context"
	"log/slog"

	"pollbox/internal/metrics"
)

type VoteEvent struct {
	PollID    int64
	OptionID  int64
	VoterType string // "user" or "anonymous"
}

// VoteWorker drains accepted-vote events off the hot path and records them
// in logs and metrics. Results themselves are always recomputed from vote
// rows, so the worker carries no correctness-critical state.
type VoteWorker struct {
	Ch <-chan VoteEvent
}

func NewVoteWorker(ch <-chan VoteEvent) *VoteWorker {
	return &VoteWorker{Ch: ch}
}

func (w *VoteWorker) Run(ctx context.Context) {
	slog.Info("vote worker started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("vote worker stopped")
			return
		case ev := <-w.Ch:
			metrics.IncVoteCast(ev.VoterType)
			slog.Info("vote recorded",
				"poll_id", ev.PollID,
				"option_id", ev.OptionID,
				"voter_type", ev.VoterType,
			)
		}
	}
}

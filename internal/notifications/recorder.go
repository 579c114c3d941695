// Package notifications provides notification accumulation, queueing, and
// real-time stream delivery.
package notifications

import (
	"context"

	"quill/internal/models"
)

// Reason classifies why a user is being notified about a note.
type Reason string

const (
	ReasonReply   Reason = "reply"
	ReasonRenote  Reason = "renote"
	ReasonQuote   Reason = "quote"
	ReasonMention Reason = "mention"
)

// Sink receives finalized notification targets.
type Sink interface {
	Enqueue(ctx context.Context, targetUserID string, reason Reason, note *models.Note, fromUserID string) error
}

// Target is one (user, reason) pair produced by a fan-out pass.
type Target struct {
	UserID string
	Reason Reason
}

// Recorder accumulates per-user notification decisions during one fan-out
// pass. Triggers may arrive in any order; the merged result is applied once
// all of them are known.
//
// Merge rule: the first recorded reason wins, except that a reply trigger
// upgrades an earlier mention. A user never gets more than one notification,
// and the notifier never notifies themselves.
type Recorder struct {
	notifierID string
	order      []string
	reasons    map[string]Reason
}

// NewRecorder creates a recorder for a fan-out pass driven by notifierID.
func NewRecorder(notifierID string) *Recorder {
	return &Recorder{
		notifierID: notifierID,
		reasons:    make(map[string]Reason),
	}
}

// Add records a trigger for userID.
func (r *Recorder) Add(userID string, reason Reason) {
	if userID == r.notifierID {
		return
	}
	current, ok := r.reasons[userID]
	if !ok {
		r.order = append(r.order, userID)
		r.reasons[userID] = reason
		return
	}
	if current == ReasonMention && reason == ReasonReply {
		r.reasons[userID] = reason
	}
}

// Targets returns the merged (user, reason) pairs in first-trigger order.
func (r *Recorder) Targets() []Target {
	targets := make([]Target, 0, len(r.order))
	for _, userID := range r.order {
		targets = append(targets, Target{UserID: userID, Reason: r.reasons[userID]})
	}
	return targets
}

// Flush enqueues every merged target into the sink. The first enqueue error
// is returned after all targets have been attempted.
func (r *Recorder) Flush(ctx context.Context, sink Sink, note *models.Note) error {
	var firstErr error
	for _, target := range r.Targets() {
		if err := sink.Enqueue(ctx, target.UserID, target.Reason, note, r.notifierID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

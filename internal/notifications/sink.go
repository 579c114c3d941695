package notifications

import (
	"context"

	"quill/internal/models"
	"quill/internal/queue"
)

// NotificationJob is the queue payload for one notification.
type NotificationJob struct {
	TargetUserID string `json:"target_user_id"`
	Reason       Reason `json:"reason"`
	NoteID       string `json:"note_id"`
	FromUserID   string `json:"from_user_id"`
}

// QueueSink enqueues notifications onto a redis-backed job queue; the worker
// that materializes and pushes them is a separate consumer.
type QueueSink struct {
	q *queue.JobQueue
}

// NewQueueSink creates a sink on the given queue.
func NewQueueSink(q *queue.JobQueue) *QueueSink {
	return &QueueSink{q: q}
}

func (s *QueueSink) Enqueue(ctx context.Context, targetUserID string, reason Reason, note *models.Note, fromUserID string) error {
	return s.q.Enqueue(ctx, NotificationJob{
		TargetUserID: targetUserID,
		Reason:       reason,
		NoteID:       note.ID,
		FromUserID:   fromUserID,
	})
}

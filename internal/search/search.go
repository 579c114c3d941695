// Package search defines the indexing contract the pipeline submits notes to.
package search

import (
	"context"

	"quill/internal/models"
	"quill/internal/queue"
)

// Indexer accepts notes for (re-)indexing. Index internals are the consumer's
// concern; the pipeline only submits.
type Indexer interface {
	Index(ctx context.Context, note *models.Note) error
}

// IndexJob is the queue payload for one indexing request.
type IndexJob struct {
	NoteID string `json:"note_id"`
	Text   string `json:"text"`
	CW     string `json:"cw"`
	UserID string `json:"user_id"`
}

// QueueIndexer submits notes onto a redis-backed indexing queue.
type QueueIndexer struct {
	q *queue.JobQueue
}

// NewQueueIndexer creates an indexer on the given queue.
func NewQueueIndexer(q *queue.JobQueue) *QueueIndexer {
	return &QueueIndexer{q: q}
}

func (i *QueueIndexer) Index(ctx context.Context, note *models.Note) error {
	return i.q.Enqueue(ctx, IndexJob{
		NoteID: note.ID,
		Text:   note.Text,
		CW:     note.CW,
		UserID: note.UserID,
	})
}

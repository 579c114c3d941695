package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"quill/internal/charts"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/observability"
	"quill/internal/queue"
	"quill/internal/repository"
	"quill/internal/search"
)

// WebhookEventNote is the event type webhooks subscribe to for note changes.
const WebhookEventNote = "note"

// WebhookJob is the queue payload for one webhook dispatch.
type WebhookJob struct {
	ID        string          `json:"id"`
	WebhookID string          `json:"webhook_id"`
	URL       string          `json:"url"`
	Secret    string          `json:"secret"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
}

// FanoutInputs carries the context a fan-out pass needs beyond the note
// itself, captured at mutation time.
type FanoutInputs struct {
	Actor        *models.User
	Profile      *models.PolicyProfile
	Mentioned    []*models.User
	ReplyTarget  *models.Note
	RenoteTarget *models.Note
	Silent       bool
}

// EditFanout drives the post-commit side effects of a note edit. Every
// sub-task is independently best-effort: a failure is logged and counted,
// never propagated, and never prevents the remaining tasks from running.
// Cancellation from process shutdown aborts silently.
type EditFanout struct {
	notes     repository.NoteRepository
	instances repository.InstanceRepository
	channels  repository.ChannelRepository
	webhooks  repository.WebhookRepository
	meta      repository.MetaRepository

	charts       *charts.Charts
	notifier     *notifications.Notifier
	sink         notifications.Sink
	scheduler    *queue.Scheduler
	webhookQueue *queue.JobQueue
	indexer      search.Indexer
	federation   *FederationDispatcher

	log *observability.Logger
}

// NewEditFanout creates the fan-out orchestrator.
func NewEditFanout(
	notes repository.NoteRepository,
	instances repository.InstanceRepository,
	channels repository.ChannelRepository,
	webhooks repository.WebhookRepository,
	meta repository.MetaRepository,
	chartSink *charts.Charts,
	notifier *notifications.Notifier,
	sink notifications.Sink,
	scheduler *queue.Scheduler,
	webhookQueue *queue.JobQueue,
	indexer search.Indexer,
	federation *FederationDispatcher,
	log *observability.Logger,
) *EditFanout {
	return &EditFanout{
		notes:        notes,
		instances:    instances,
		channels:     channels,
		webhooks:     webhooks,
		meta:         meta,
		charts:       chartSink,
		notifier:     notifier,
		sink:         sink,
		scheduler:    scheduler,
		webhookQueue: webhookQueue,
		indexer:      indexer,
		federation:   federation,
		log:          log,
	}
}

// Run executes the fan-out pass for a committed note mutation.
func (f *EditFanout) Run(ctx context.Context, note *models.Note, in FanoutInputs) {
	// Instance chart gating is itself best-effort: a missing settings row
	// just disables instance charts for this pass.
	instanceCharts := false
	if meta, err := f.meta.Get(ctx); err == nil {
		instanceCharts = meta.EnableInstanceCharts
	}

	f.step(ctx, note, "charts", func() error {
		return f.charts.IncNote(ctx, note.UserID, note.UserHost, instanceCharts)
	})

	if note.UserHost != "" {
		f.step(ctx, note, "instance", func() error {
			if _, err := f.instances.EnsureRegistered(ctx, note.UserHost); err != nil {
				return err
			}
			return f.instances.IncrementNotes(ctx, note.UserHost)
		})
	}

	if note.Visibility == models.VisibilityPublic || note.Visibility == models.VisibilityHome {
		f.step(ctx, note, "hashtags", func() error {
			for _, tag := range note.Tags {
				if err := f.charts.BumpHashtag(ctx, note.UserID, tag); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if note.HasPoll && note.Poll != nil && note.Poll.ExpiresAt != nil {
		f.step(ctx, note, "poll-expiry", func() error {
			return f.scheduler.ScheduleAt(ctx, "poll-expiry", note.ID, *note.Poll.ExpiresAt)
		})
	}

	if !in.Silent {
		f.step(ctx, note, "unread", func() error { return f.markUnread(ctx, note, in) })

		f.step(ctx, note, "stream", func() error {
			payload, err := packNoteEvent(note)
			if err != nil {
				return err
			}
			return f.notifier.PublishNoteUpdated(ctx, payload)
		})

		if in.Profile != nil {
			f.step(ctx, note, "role-timelines", func() error {
				for _, roleID := range in.Profile.TimelineRoleIDs {
					if err := f.charts.PushRoleTimeline(ctx, roleID, note.ID); err != nil {
						return err
					}
				}
				return nil
			})
		}

		f.step(ctx, note, "webhooks", func() error { return f.dispatchWebhooks(ctx, note, in.Actor) })

		if in.Actor.IsLocal() {
			f.step(ctx, note, "federation", func() error {
				return f.federation.Dispatch(ctx, note, in.Actor, in.Mentioned, in.ReplyTarget, in.RenoteTarget)
			})
		}
	}

	f.step(ctx, note, "notifications", func() error { return f.notify(ctx, note, in) })

	if note.ChannelID != nil {
		f.step(ctx, note, "channel", func() error {
			return f.channels.BumpLastNoted(ctx, *note.ChannelID, time.Now())
		})
	}

	if note.Text != "" || note.CW != "" {
		f.step(ctx, note, "search", func() error {
			return f.indexer.Index(ctx, note)
		})
	}
}

// step runs one best-effort sub-task. Shutdown cancellation is swallowed
// silently; any other failure is logged and counted but never propagated.
func (f *EditFanout) step(ctx context.Context, note *models.Note, name string, fn func() error) {
	if ctx.Err() != nil {
		return
	}
	if err := fn(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		f.log.Warn("fanout step failed", "step", name, "note_id", note.ID, "err", err)
		observability.FanoutStepFailures.WithLabelValues(name).Inc()
	}
}

// markUnread records unread markers: for specified visibility every
// explicitly visible user, otherwise every mentioned local user, never both.
func (f *EditFanout) markUnread(ctx context.Context, note *models.Note, in FanoutInputs) error {
	var firstErr error
	if note.Visibility == models.VisibilitySpecified {
		for _, userID := range note.VisibleUserIDs {
			if userID == in.Actor.ID {
				continue
			}
			if err := f.notes.MarkUnread(ctx, userID, note.ID, true); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, user := range in.Mentioned {
		if !user.IsLocal() || user.ID == in.Actor.ID {
			continue
		}
		if err := f.notes.MarkUnread(ctx, user.ID, note.ID, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// notify accumulates every notification trigger first, then flushes, so the
// reply-dominates-mention rule holds regardless of discovery order.
func (f *EditFanout) notify(ctx context.Context, note *models.Note, in FanoutInputs) error {
	recorder := notifications.NewRecorder(in.Actor.ID)

	for _, user := range in.Mentioned {
		if user.IsLocal() {
			recorder.Add(user.ID, notifications.ReasonMention)
		}
	}
	if in.ReplyTarget != nil {
		recorder.Add(in.ReplyTarget.UserID, notifications.ReasonReply)
	}
	if in.RenoteTarget != nil {
		reason := notifications.ReasonRenote
		if note.IsQuote() {
			reason = notifications.ReasonQuote
		}
		recorder.Add(in.RenoteTarget.UserID, reason)
	}

	return recorder.Flush(ctx, f.sink, note)
}

func (f *EditFanout) dispatchWebhooks(ctx context.Context, note *models.Note, actor *models.User) error {
	hooks, err := f.webhooks.ListActiveByUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if len(hooks) == 0 {
		return nil
	}
	payload, err := json.Marshal(note)
	if err != nil {
		return err
	}
	var firstErr error
	for _, hook := range hooks {
		if !hook.Subscribed(WebhookEventNote) {
			continue
		}
		job := WebhookJob{
			ID:        uuid.NewString(),
			WebhookID: hook.ID,
			URL:       hook.URL,
			Secret:    hook.Secret,
			Event:     "note.updated",
			Payload:   payload,
		}
		if err := f.webhookQueue.Enqueue(ctx, job); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// packNoteEvent renders the stream event for an updated note.
func packNoteEvent(note *models.Note) (string, error) {
	event := map[string]interface{}{
		"type":    "note_updated",
		"payload": note,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/queue"
	"quill/internal/repository"
)

// Activity is a minimal ActivityPub activity envelope. The delivery worker
// signs and posts it as-is.
type Activity struct {
	Context interface{}            `json:"@context"`
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Actor   string                 `json:"actor"`
	Object  map[string]interface{} `json:"object,omitempty"`
	To      []string               `json:"to,omitempty"`
	CC      []string               `json:"cc,omitempty"`
}

// ActivityBuilder renders activities for outbound federation.
type ActivityBuilder interface {
	BuildUpdate(actor *models.User, note *models.Note) *Activity
	BuildAnnounce(actor *models.User, note, renoteTarget *models.Note) *Activity
}

// DeliveryJob is the queue payload consumed by the delivery workers. Inbox
// URLs are the direct recipients; the flags expand to follower inboxes and
// relays on the worker side.
type DeliveryJob struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	Activity    *Activity `json:"activity"`
	InboxURLs   []string  `json:"inbox_urls"`
	ToFollowers bool      `json:"to_followers"`
	ToRelays    bool      `json:"to_relays"`
}

// FederationDispatcher turns a committed note mutation into a delivery job.
type FederationDispatcher struct {
	users   repository.UserRepository
	deliver *queue.JobQueue
	builder ActivityBuilder
	log     *observability.Logger
}

// NewFederationDispatcher creates a dispatcher enqueueing onto deliver.
func NewFederationDispatcher(users repository.UserRepository, deliver *queue.JobQueue, builder ActivityBuilder, log *observability.Logger) *FederationDispatcher {
	return &FederationDispatcher{users: users, deliver: deliver, builder: builder, log: log}
}

// Dispatch builds the outbound activity for the note and enqueues one
// delivery job for it. Local-only notes never leave the instance. A pure
// renote federates as an announce of the renoted note; anything else
// federates as an update of the note itself.
//
// The enqueue itself is detached from the caller's context so an
// already-finished fan-out pass cannot cancel it mid-flight.
func (d *FederationDispatcher) Dispatch(
	ctx context.Context,
	note *models.Note,
	actor *models.User,
	mentioned []*models.User,
	replyTarget, renoteTarget *models.Note,
) error {
	if note.LocalOnly {
		return nil
	}

	var activity *Activity
	if renoteTarget != nil && !note.IsQuote() {
		activity = d.builder.BuildAnnounce(actor, note, renoteTarget)
	} else {
		activity = d.builder.BuildUpdate(actor, note)
	}

	inboxes, err := d.directInboxes(ctx, note, mentioned, replyTarget, renoteTarget)
	if err != nil {
		return err
	}

	job := DeliveryJob{
		ID:          uuid.NewString(),
		ActorID:     actor.ID,
		Activity:    activity,
		InboxURLs:   inboxes,
		ToFollowers: note.Visibility != models.VisibilitySpecified,
		ToRelays:    note.Visibility == models.VisibilityPublic,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := d.deliver.Enqueue(ctx, job); err != nil {
			d.log.Warn("delivery enqueue failed", "note_id", note.ID, "err", err)
		}
	}()

	return nil
}

// directInboxes collects the inboxes of every remote user directly involved
// in the note: mentioned users plus the reply and renote authors. Duplicate
// users and shared inboxes collapse to one entry; a user that cannot be
// loaded is skipped rather than blocking delivery to the rest.
func (d *FederationDispatcher) directInboxes(
	ctx context.Context,
	note *models.Note,
	mentioned []*models.User,
	replyTarget, renoteTarget *models.Note,
) ([]string, error) {
	seenUsers := make(map[string]struct{})
	seenInboxes := make(map[string]struct{})
	var inboxes []string

	add := func(user *models.User) {
		if user == nil || user.IsLocal() {
			return
		}
		if _, ok := seenUsers[user.ID]; ok {
			return
		}
		seenUsers[user.ID] = struct{}{}
		inbox := user.SharedInbox
		if inbox == "" {
			inbox = user.Inbox
		}
		if inbox == "" {
			return
		}
		if _, ok := seenInboxes[inbox]; ok {
			return
		}
		seenInboxes[inbox] = struct{}{}
		inboxes = append(inboxes, inbox)
	}

	for _, user := range mentioned {
		add(user)
	}
	addAuthor := func(target *models.Note) {
		if target == nil || target.UserHost == "" {
			return
		}
		user, err := d.users.GetByID(ctx, target.UserID)
		if err != nil {
			d.log.Warn("skipping unresolvable delivery recipient", "user_id", target.UserID, "err", err)
			return
		}
		add(user)
	}
	addAuthor(replyTarget)
	addAuthor(renoteTarget)

	return inboxes, nil
}

const activityStreamsContext = "https://www.w3.org/ns/activitystreams"

const publicAudience = activityStreamsContext + "#Public"

// apActivityBuilder renders activities using the instance's canonical URL
// scheme for object ids.
type apActivityBuilder struct {
	baseURL string
}

// NewActivityBuilder creates the default ActivityPub activity builder.
func NewActivityBuilder(baseURL string) ActivityBuilder {
	return &apActivityBuilder{baseURL: baseURL}
}

func (b *apActivityBuilder) noteURL(id string) string {
	return fmt.Sprintf("%s/notes/%s", b.baseURL, id)
}

func (b *apActivityBuilder) userURL(u *models.User) string {
	if u.URI != "" {
		return u.URI
	}
	return fmt.Sprintf("%s/users/%s", b.baseURL, u.ID)
}

func (b *apActivityBuilder) audience(note *models.Note, actorURL string) (to, cc []string) {
	followers := actorURL + "/followers"
	switch note.Visibility {
	case models.VisibilityPublic:
		return []string{publicAudience}, []string{followers}
	case models.VisibilityHome:
		return []string{followers}, []string{publicAudience}
	case models.VisibilityFollowers:
		return []string{followers}, nil
	default:
		// specified: the delivery job's direct inboxes are the audience
		return nil, nil
	}
}

func (b *apActivityBuilder) BuildUpdate(actor *models.User, note *models.Note) *Activity {
	actorURL := b.userURL(actor)
	to, cc := b.audience(note, actorURL)

	object := map[string]interface{}{
		"id":           b.noteURL(note.ID),
		"type":         "Note",
		"attributedTo": actorURL,
		"content":      note.Text,
	}
	if note.CW != "" {
		object["summary"] = note.CW
	}
	if note.UpdatedAt != nil {
		object["updated"] = note.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if note.ReplyID != nil {
		object["inReplyTo"] = b.noteURL(*note.ReplyID)
	}

	return &Activity{
		Context: activityStreamsContext,
		ID:      b.noteURL(note.ID) + "/activity",
		Type:    "Update",
		Actor:   actorURL,
		Object:  object,
		To:      to,
		CC:      cc,
	}
}

func (b *apActivityBuilder) BuildAnnounce(actor *models.User, note, renoteTarget *models.Note) *Activity {
	actorURL := b.userURL(actor)
	to, cc := b.audience(note, actorURL)

	return &Activity{
		Context: activityStreamsContext,
		ID:      b.noteURL(note.ID) + "/activity",
		Type:    "Announce",
		Actor:   actorURL,
		Object: map[string]interface{}{
			"id": b.noteURL(renoteTarget.ID),
		},
		To: to,
		CC: cc,
	}
}

// storeRemoteResolver resolves remote mentions from the local user store.
// Fetch-on-miss from the origin instance belongs to the inbound federation
// path, which keeps remote accounts warm; an unknown account here is simply
// an unresolvable mention.
type storeRemoteResolver struct {
	users repository.UserRepository
}

// NewStoreRemoteResolver creates a store-backed remote resolver.
func NewStoreRemoteResolver(users repository.UserRepository) RemoteResolver {
	return &storeRemoteResolver{users: users}
}

func (r *storeRemoteResolver) Resolve(ctx context.Context, username, host string) (*models.User, error) {
	return r.users.GetByUsername(ctx, username, host)
}

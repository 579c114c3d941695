package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/charts"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/observability"
	"quill/internal/queue"
	"quill/internal/search"
)

type fanoutFixture struct {
	notes     *noteRepoStub
	instances *instanceRepoStub
	channels  *channelRepoStub
	webhooks  *webhookRepoStub
	meta      *metaRepoStub
	sink      *recordingSink
	rdb       *redis.Client
	mr        *miniredis.Miniredis
	fanout    *EditFanout
}

func newFanoutFixture(t *testing.T) *fanoutFixture {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fanoutFixture{
		notes:     noopNoteRepo(),
		instances: noopInstanceRepo(),
		channels:  noopChannelRepo(),
		webhooks:  noopWebhookRepo(),
		meta:      noopMetaRepo(),
		sink:      &recordingSink{},
		rdb:       rdb,
		mr:        mr,
	}

	users := noopUserRepo()
	f.fanout = NewEditFanout(
		f.notes, f.instances, f.channels, f.webhooks, f.meta,
		charts.New(rdb),
		notifications.NewNotifier(rdb),
		f.sink,
		queue.NewScheduler(rdb, "test:schedule"),
		queue.NewJobQueue(rdb, "test:webhooks"),
		search.NewQueueIndexer(queue.NewJobQueue(rdb, "test:search")),
		NewFederationDispatcher(users, queue.NewJobQueue(rdb, "test:deliver"), NewActivityBuilder("http://localhost"), observability.GlobalLogger),
		observability.GlobalLogger,
	)
	return f
}

type unreadCall struct {
	userID    string
	specified bool
}

func (f *fanoutFixture) recordUnreads() *[]unreadCall {
	calls := &[]unreadCall{}
	f.notes.markUnreadFn = func(_ context.Context, userID, _ string, specified bool) error {
		*calls = append(*calls, unreadCall{userID: userID, specified: specified})
		return nil
	}
	return calls
}

func fanoutNote() *models.Note {
	return &models.Note{
		ID:         "note1",
		UserID:     "actor1",
		Text:       "hello",
		Visibility: models.VisibilityPublic,
	}
}

func TestFanout_UnreadForMentionedLocals(t *testing.T) {
	f := newFanoutFixture(t)
	calls := f.recordUnreads()

	f.fanout.Run(context.Background(), fanoutNote(), FanoutInputs{
		Actor:   &models.User{ID: "actor1"},
		Profile: &models.PolicyProfile{CanPublicNote: true},
		Mentioned: []*models.User{
			{ID: "local1"},
			{ID: "remote1", Host: "remote.example"},
			{ID: "actor1"},
		},
	})

	require.Len(t, *calls, 1)
	assert.Equal(t, unreadCall{userID: "local1", specified: false}, (*calls)[0])
}

func TestFanout_UnreadForSpecifiedRecipientsOnly(t *testing.T) {
	f := newFanoutFixture(t)
	calls := f.recordUnreads()

	note := fanoutNote()
	note.Visibility = models.VisibilitySpecified
	note.VisibleUserIDs = models.StringList{"u2", "actor1", "u3"}

	f.fanout.Run(context.Background(), note, FanoutInputs{
		Actor:     &models.User{ID: "actor1"},
		Mentioned: []*models.User{{ID: "mentioned-but-not-visible"}},
	})

	require.Len(t, *calls, 2)
	assert.Equal(t, unreadCall{userID: "u2", specified: true}, (*calls)[0])
	assert.Equal(t, unreadCall{userID: "u3", specified: true}, (*calls)[1])
}

func TestFanout_SilentSkipsDeliveryButNotNotifications(t *testing.T) {
	f := newFanoutFixture(t)
	calls := f.recordUnreads()
	f.webhooks.listActiveByUserFn = func(_ context.Context, _ string) ([]*models.Webhook, error) {
		t.Fatal("webhooks must not be consulted for a silent edit")
		return nil, nil
	}

	f.fanout.Run(context.Background(), fanoutNote(), FanoutInputs{
		Actor:     &models.User{ID: "actor1"},
		Mentioned: []*models.User{{ID: "local1"}},
		Silent:    true,
	})

	assert.Empty(t, *calls)
	targets := f.sink.targets()
	require.Len(t, targets, 1)
	assert.Equal(t, "local1", targets[0].UserID)
	assert.Equal(t, notifications.ReasonMention, targets[0].Reason)
}

func TestFanout_ReplyDominatesMention(t *testing.T) {
	f := newFanoutFixture(t)

	note := fanoutNote()
	note.ReplyID = strPtr("parent")

	f.fanout.Run(context.Background(), note, FanoutInputs{
		Actor:       &models.User{ID: "actor1"},
		Mentioned:   []*models.User{{ID: "u-parent"}},
		ReplyTarget: &models.Note{ID: "parent", UserID: "u-parent"},
	})

	targets := f.sink.targets()
	require.Len(t, targets, 1)
	assert.Equal(t, notifications.ReasonReply, targets[0].Reason)
}

func TestFanout_QuoteNotifiesAsQuote(t *testing.T) {
	f := newFanoutFixture(t)

	note := fanoutNote()
	note.RenoteID = strPtr("orig")
	note.Text = "commentary"

	f.fanout.Run(context.Background(), note, FanoutInputs{
		Actor:        &models.User{ID: "actor1"},
		RenoteTarget: &models.Note{ID: "orig", UserID: "u-orig"},
	})

	targets := f.sink.targets()
	require.Len(t, targets, 1)
	assert.Equal(t, notifications.ReasonQuote, targets[0].Reason)
}

func TestFanout_WebhooksFilteredBySubscription(t *testing.T) {
	f := newFanoutFixture(t)
	f.webhooks.listActiveByUserFn = func(_ context.Context, _ string) ([]*models.Webhook, error) {
		return []*models.Webhook{
			{ID: "w1", URL: "https://a.example/cb", On: models.StringList{"note"}},
			{ID: "w2", URL: "https://b.example/cb", On: models.StringList{"follow"}},
		}, nil
	}

	f.fanout.Run(context.Background(), fanoutNote(), FanoutInputs{
		Actor:   &models.User{ID: "actor1"},
		Profile: &models.PolicyProfile{CanPublicNote: true},
	})

	jobs, err := f.rdb.LLen(context.Background(), "test:webhooks").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), jobs)
}

func TestFanout_PollExpiryScheduled(t *testing.T) {
	f := newFanoutFixture(t)

	expires := time.Now().Add(time.Hour)
	note := fanoutNote()
	note.HasPoll = true
	note.Poll = &models.Poll{Choices: []string{"a", "b"}, ExpiresAt: &expires}

	f.fanout.Run(context.Background(), note, FanoutInputs{
		Actor: &models.User{ID: "actor1"},
	})

	members, err := f.rdb.ZRange(context.Background(), "test:schedule", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"poll-expiry:note1"}, members)
}

func TestFanout_ChannelBumped(t *testing.T) {
	f := newFanoutFixture(t)

	var bumped string
	f.channels.bumpLastNotedFn = func(_ context.Context, id string, _ time.Time) error {
		bumped = id
		return nil
	}

	note := fanoutNote()
	note.ChannelID = strPtr("ch1")
	note.LocalOnly = true

	f.fanout.Run(context.Background(), note, FanoutInputs{
		Actor: &models.User{ID: "actor1"},
	})

	assert.Equal(t, "ch1", bumped)
}

func TestFanout_EmptyNoteSkipsSearchIndex(t *testing.T) {
	f := newFanoutFixture(t)

	note := fanoutNote()
	note.Text = ""
	note.CW = ""
	note.RenoteID = strPtr("orig")

	f.fanout.Run(context.Background(), note, FanoutInputs{
		Actor: &models.User{ID: "actor1"},
	})

	jobs, err := f.rdb.LLen(context.Background(), "test:search").Result()
	require.NoError(t, err)
	assert.Zero(t, jobs)
}

func TestFanout_RemoteAuthorRegistersInstance(t *testing.T) {
	f := newFanoutFixture(t)

	var registered string
	f.instances.ensureRegisteredFn = func(_ context.Context, host string) (bool, error) {
		registered = host
		return true, nil
	}
	var incremented string
	f.instances.incrementNotesFn = func(_ context.Context, host string) error {
		incremented = host
		return nil
	}

	note := fanoutNote()
	note.UserHost = "remote.example"

	f.fanout.Run(context.Background(), note, FanoutInputs{
		Actor: &models.User{ID: "actor1", Host: "remote.example"},
	})

	assert.Equal(t, "remote.example", registered)
	assert.Equal(t, "remote.example", incremented)
}

func TestFanout_StepFailureDoesNotAbortRun(t *testing.T) {
	f := newFanoutFixture(t)

	f.notes.markUnreadFn = func(_ context.Context, _, _ string, _ bool) error {
		return assert.AnError
	}
	var bumped bool
	f.channels.bumpLastNotedFn = func(_ context.Context, _ string, _ time.Time) error {
		bumped = true
		return nil
	}

	note := fanoutNote()
	note.ChannelID = strPtr("ch1")
	note.LocalOnly = true

	f.fanout.Run(context.Background(), note, FanoutInputs{
		Actor:     &models.User{ID: "actor1"},
		Mentioned: []*models.User{{ID: "local1"}},
	})

	assert.True(t, bumped)
	targets := f.sink.targets()
	assert.Len(t, targets, 1)
}

package service

import (
	"context"
	"time"

	"quill/internal/models"
)

// noteRepoStub is a stub for repository.NoteRepository.
type noteRepoStub struct {
	getByIDFn    func(context.Context, string) (*models.Note, error)
	updateFn     func(context.Context, *models.Note) error
	markUnreadFn func(context.Context, string, string, bool) error
}

func (s *noteRepoStub) GetByID(ctx context.Context, id string) (*models.Note, error) {
	return s.getByIDFn(ctx, id)
}
func (s *noteRepoStub) Update(ctx context.Context, note *models.Note) error {
	return s.updateFn(ctx, note)
}
func (s *noteRepoStub) MarkUnread(ctx context.Context, userID, noteID string, specified bool) error {
	return s.markUnreadFn(ctx, userID, noteID, specified)
}

func noopNoteRepo() *noteRepoStub {
	return &noteRepoStub{
		getByIDFn:    func(_ context.Context, id string) (*models.Note, error) { return nil, models.NewNotFoundError("note", id) },
		updateFn:     func(_ context.Context, _ *models.Note) error { return nil },
		markUnreadFn: func(_ context.Context, _, _ string, _ bool) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string, string) (*models.User, error)
	isBlockingFn    func(context.Context, string, string) (bool, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username, host string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username, host)
}
func (s *userRepoStub) IsBlocking(ctx context.Context, blockerID, blockeeID string) (bool, error) {
	return s.isBlockingFn(ctx, blockerID, blockeeID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Username: "user-" + id}, nil
		},
		getByUsernameFn: func(_ context.Context, username, host string) (*models.User, error) {
			return &models.User{ID: "id-" + username, Username: username, Host: host}, nil
		},
		isBlockingFn: func(_ context.Context, _, _ string) (bool, error) { return false, nil },
	}
}

// channelRepoStub is a stub for repository.ChannelRepository.
type channelRepoStub struct {
	getByIDFn       func(context.Context, string) (*models.Channel, error)
	bumpLastNotedFn func(context.Context, string, time.Time) error
}

func (s *channelRepoStub) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	return s.getByIDFn(ctx, id)
}
func (s *channelRepoStub) BumpLastNoted(ctx context.Context, id string, at time.Time) error {
	return s.bumpLastNotedFn(ctx, id, at)
}

func noopChannelRepo() *channelRepoStub {
	return &channelRepoStub{
		getByIDFn: func(_ context.Context, id string) (*models.Channel, error) {
			return &models.Channel{ID: id, Name: "channel"}, nil
		},
		bumpLastNotedFn: func(_ context.Context, _ string, _ time.Time) error { return nil },
	}
}

// metaRepoStub is a stub for repository.MetaRepository.
type metaRepoStub struct {
	getFn func(context.Context) (*models.Meta, error)
}

func (s *metaRepoStub) Get(ctx context.Context) (*models.Meta, error) {
	return s.getFn(ctx)
}

func noopMetaRepo() *metaRepoStub {
	return &metaRepoStub{
		getFn: func(_ context.Context) (*models.Meta, error) { return &models.Meta{}, nil },
	}
}

// roleRepoStub is a stub for repository.RoleRepository.
type roleRepoStub struct {
	profileForFn func(context.Context, string) (*models.PolicyProfile, error)
}

func (s *roleRepoStub) ProfileFor(ctx context.Context, userID string) (*models.PolicyProfile, error) {
	return s.profileForFn(ctx, userID)
}

func noopRoleRepo() *roleRepoStub {
	return &roleRepoStub{
		profileForFn: func(_ context.Context, _ string) (*models.PolicyProfile, error) {
			return &models.PolicyProfile{CanPublicNote: true}, nil
		},
	}
}

// instanceRepoStub is a stub for repository.InstanceRepository.
type instanceRepoStub struct {
	ensureRegisteredFn func(context.Context, string) (bool, error)
	incrementNotesFn   func(context.Context, string) error
}

func (s *instanceRepoStub) EnsureRegistered(ctx context.Context, host string) (bool, error) {
	return s.ensureRegisteredFn(ctx, host)
}
func (s *instanceRepoStub) IncrementNotes(ctx context.Context, host string) error {
	return s.incrementNotesFn(ctx, host)
}

func noopInstanceRepo() *instanceRepoStub {
	return &instanceRepoStub{
		ensureRegisteredFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		incrementNotesFn:   func(_ context.Context, _ string) error { return nil },
	}
}

// webhookRepoStub is a stub for repository.WebhookRepository.
type webhookRepoStub struct {
	listActiveByUserFn func(context.Context, string) ([]*models.Webhook, error)
}

func (s *webhookRepoStub) ListActiveByUser(ctx context.Context, userID string) ([]*models.Webhook, error) {
	return s.listActiveByUserFn(ctx, userID)
}

func noopWebhookRepo() *webhookRepoStub {
	return &webhookRepoStub{
		listActiveByUserFn: func(_ context.Context, _ string) ([]*models.Webhook, error) { return nil, nil },
	}
}

// remoteResolverStub is a stub for RemoteResolver.
type remoteResolverStub struct {
	resolveFn func(context.Context, string, string) (*models.User, error)
}

func (s *remoteResolverStub) Resolve(ctx context.Context, username, host string) (*models.User, error) {
	return s.resolveFn(ctx, username, host)
}

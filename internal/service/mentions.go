package service

import (
	"context"
	"sync"

	"quill/internal/mfm"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
)

// RemoteResolver fetches (or refreshes) a remote user by acct pair. Failure
// is tolerated by the caller, never fatal.
type RemoteResolver interface {
	Resolve(ctx context.Context, username, host string) (*models.User, error)
}

// MentionResolver turns parsed mention tokens into concrete user identities.
type MentionResolver struct {
	users  repository.UserRepository
	remote RemoteResolver
}

// NewMentionResolver creates a mention resolver.
func NewMentionResolver(users repository.UserRepository, remote RemoteResolver) *MentionResolver {
	return &MentionResolver{users: users, remote: remote}
}

// Resolve maps mention tokens to users. A token without a host defaults to
// the acting user's host. Each unique (username, host) pair is looked up
// once, concurrently; a failed lookup silently drops that mention. The result
// is deduplicated by user id, in token order.
func (r *MentionResolver) Resolve(ctx context.Context, tokens []mfm.Mention, actor *models.User) []*models.User {
	resolved := make([]*models.User, len(tokens))

	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token mfm.Mention) {
			defer wg.Done()
			host := token.Host
			if host == "" {
				host = actor.Host
			}
			user, err := r.lookup(ctx, token.Username, host)
			if err != nil {
				observability.MentionLookupFailures.Inc()
				return
			}
			resolved[i] = user
		}(i, token)
	}
	wg.Wait()

	seen := make(map[string]struct{}, len(tokens))
	users := make([]*models.User, 0, len(tokens))
	for _, user := range resolved {
		if user == nil {
			continue
		}
		if _, ok := seen[user.ID]; ok {
			continue
		}
		seen[user.ID] = struct{}{}
		users = append(users, user)
	}
	return users
}

// lookup resolves local mentions from the store and remote ones through the
// remote resolver.
func (r *MentionResolver) lookup(ctx context.Context, username, host string) (*models.User, error) {
	if host == "" {
		return r.users.GetByUsername(ctx, username, "")
	}
	return r.remote.Resolve(ctx, username, host)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"quill/internal/mfm"
	"quill/internal/models"
)

func TestMentionResolver_LocalAndRemote(t *testing.T) {
	users := noopUserRepo()
	users.getByUsernameFn = func(_ context.Context, username, host string) (*models.User, error) {
		if username == "alice" && host == "" {
			return &models.User{ID: "u-alice", Username: "alice"}, nil
		}
		return nil, models.NewNotFoundError("user", username)
	}
	remote := &remoteResolverStub{
		resolveFn: func(_ context.Context, username, host string) (*models.User, error) {
			return &models.User{ID: "u-" + username + "@" + host, Username: username, Host: host}, nil
		},
	}

	r := NewMentionResolver(users, remote)
	actor := &models.User{ID: "actor", Username: "me"}

	resolved := r.Resolve(context.Background(), []mfm.Mention{
		{Username: "alice"},
		{Username: "bob", Host: "remote.example"},
	}, actor)

	assert.Len(t, resolved, 2)
	assert.Equal(t, "u-alice", resolved[0].ID)
	assert.Equal(t, "u-bob@remote.example", resolved[1].ID)
}

func TestMentionResolver_HostDefaultsToActorHost(t *testing.T) {
	var gotHost string
	remote := &remoteResolverStub{
		resolveFn: func(_ context.Context, username, host string) (*models.User, error) {
			gotHost = host
			return &models.User{ID: "u1", Username: username, Host: host}, nil
		},
	}

	r := NewMentionResolver(noopUserRepo(), remote)
	actor := &models.User{ID: "actor", Username: "me", Host: "home.example"}

	resolved := r.Resolve(context.Background(), []mfm.Mention{{Username: "alice"}}, actor)
	assert.Len(t, resolved, 1)
	assert.Equal(t, "home.example", gotHost)
}

func TestMentionResolver_FailedLookupDropped(t *testing.T) {
	remote := &remoteResolverStub{
		resolveFn: func(_ context.Context, username, host string) (*models.User, error) {
			if username == "gone" {
				return nil, errors.New("lookup failed")
			}
			return &models.User{ID: "u-" + username, Username: username, Host: host}, nil
		},
	}

	r := NewMentionResolver(noopUserRepo(), remote)
	actor := &models.User{ID: "actor", Username: "me"}

	resolved := r.Resolve(context.Background(), []mfm.Mention{
		{Username: "gone", Host: "remote.example"},
		{Username: "here", Host: "remote.example"},
	}, actor)

	assert.Len(t, resolved, 1)
	assert.Equal(t, "u-here", resolved[0].ID)
}

func TestMentionResolver_DeduplicatesByUserID(t *testing.T) {
	users := noopUserRepo()
	users.getByUsernameFn = func(_ context.Context, username, host string) (*models.User, error) {
		// Both tokens resolve to the same account.
		return &models.User{ID: "u-same", Username: "alice"}, nil
	}

	r := NewMentionResolver(users, &remoteResolverStub{
		resolveFn: func(_ context.Context, _, _ string) (*models.User, error) {
			return &models.User{ID: "u-same", Username: "alice"}, nil
		},
	})
	actor := &models.User{ID: "actor", Username: "me"}

	resolved := r.Resolve(context.Background(), []mfm.Mention{
		{Username: "alice"},
		{Username: "ALICE"},
	}, actor)

	assert.Len(t, resolved, 1)
}

func TestMentionResolver_PreservesTokenOrder(t *testing.T) {
	users := noopUserRepo()
	r := NewMentionResolver(users, &remoteResolverStub{
		resolveFn: func(_ context.Context, username, host string) (*models.User, error) {
			return &models.User{ID: "u-" + username, Username: username, Host: host}, nil
		},
	})
	actor := &models.User{ID: "actor", Username: "me"}

	tokens := []mfm.Mention{
		{Username: "c"}, {Username: "a"}, {Username: "b"},
	}
	resolved := r.Resolve(context.Background(), tokens, actor)

	assert.Len(t, resolved, 3)
	assert.Equal(t, "id-c", resolved[0].ID)
	assert.Equal(t, "id-a", resolved[1].ID)
	assert.Equal(t, "id-b", resolved[2].ID)
}

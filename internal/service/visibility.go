// Package service implements the note-edit pipeline: visibility resolution,
// content analysis, mention resolution, the atomic mutation, and the deferred
// fan-out that follows a successful edit.
package service

import (
	"strings"

	"quill/internal/models"
)

// VisibilityInputs are the read-only policy facts the resolver needs. The
// caller gathers them up front so resolution itself stays a pure function.
type VisibilityInputs struct {
	CanPublicNote bool

	SensitiveWords  []string
	ProhibitedWords []string
	SilencedHosts   []string

	ReplyTarget  *models.Note // nil when the resolved edit has no reply
	RenoteTarget *models.Note // nil when the resolved edit has no renote

	// RenoteAuthorBlocksActor is precomputed by the caller for rule 8.
	RenoteAuthorBlocksActor bool
}

// Resolution is the final visibility outcome for an edit.
type Resolution struct {
	Visibility     models.Visibility
	LocalOnly      bool
	ChannelID      *string
	VisibleUserIDs []string
}

// ResolveVisibility computes the final visibility, locality, and channel for
// an edit. Rules apply in a fixed order; downgrades only ever narrow
// visibility, and each rejection is evaluated at its own position so a
// downgrade cannot mask a rejection that depends on the original text.
func ResolveVisibility(target *models.Note, req *EditNoteInput, actor *models.User, in VisibilityInputs) (Resolution, error) {
	text := strOr(req.Text, target.Text)
	cw := strOr(req.CW, target.CW)

	visibility := target.Visibility
	if req.Visibility != nil {
		visibility = *req.Visibility
	}
	localOnly := target.LocalOnly
	if req.LocalOnly != nil {
		localOnly = *req.LocalOnly
	}
	channelID := target.ChannelID
	if req.ChannelID != nil {
		channelID = req.ChannelID
	}
	visibleUserIDs := []string(target.VisibleUserIDs)
	if req.VisibleUserIDs != nil {
		visibleUserIDs = req.VisibleUserIDs
	}

	// A renote is a quote when the edit carries its own content.
	fileIDs := []string(target.FileIDs)
	if req.FileIDs != nil {
		fileIDs = req.FileIDs
	}
	hasPoll := target.HasPoll
	if req.Poll != nil {
		hasPoll = true
	}
	isQuote := text != "" || cw != "" || len(fileIDs) > 0 || hasPoll

	// Rule 1: a changed reply target drags the note into the reply's channel,
	// or out of its current one.
	replyChanged := req.ReplyID != nil && !strPtrEq(req.ReplyID, target.ReplyID)
	if replyChanged && in.ReplyTarget != nil && !strPtrEq(in.ReplyTarget.ChannelID, channelID) {
		if in.ReplyTarget.ChannelID != nil {
			channelID = in.ReplyTarget.ChannelID
		} else {
			channelID = nil
		}
	}

	// Rule 2: a channel-less edit replying into a channel adopts it.
	if channelID == nil && in.ReplyTarget != nil && in.ReplyTarget.ChannelID != nil {
		channelID = in.ReplyTarget.ChannelID
	}

	// Rule 3: channel notes cannot be private or federation-visible.
	if channelID != nil {
		visibility = models.VisibilityPublic
		visibleUserIDs = nil
		localOnly = true
	}

	// Rule 4: sensitive keywords and role policy pull public notes down to home.
	if visibility == models.VisibilityPublic && channelID == nil {
		if containsKeyword(text, in.SensitiveWords) || containsKeyword(cw, in.SensitiveWords) || !in.CanPublicNote {
			visibility = models.VisibilityHome
		}
	}

	// Rule 5: prohibited keywords reject outright, regardless of visibility.
	if containsKeyword(text, in.ProhibitedWords) || containsKeyword(cw, in.ProhibitedWords) {
		return Resolution{}, models.NewContentPolicyError("note contains prohibited words")
	}

	// Rule 6: silenced remote hosts cannot post publicly.
	if visibility == models.VisibilityPublic && actor.Host != "" && hostMatches(actor.Host, in.SilencedHosts) {
		visibility = models.VisibilityHome
	}

	// Rules 7-8 constrain plain renotes by the renoted note's visibility.
	if in.RenoteTarget != nil && !isQuote {
		switch in.RenoteTarget.Visibility {
		case models.VisibilityPublic:
			// no constraint
		case models.VisibilityHome:
			if visibility == models.VisibilityPublic {
				visibility = models.VisibilityHome
			}
		case models.VisibilityFollowers:
			if in.RenoteTarget.UserID != actor.ID {
				return Resolution{}, models.NewForbiddenError("cannot renote a followers-only note by another user")
			}
			visibility = models.VisibilityFollowers
		case models.VisibilitySpecified:
			return Resolution{}, models.NewForbiddenError("cannot renote a direct note")
		}

		if in.RenoteTarget.UserID != actor.ID && in.RenoteAuthorBlocksActor {
			return Resolution{}, models.NewForbiddenError("you are blocked by the author of the renoted note")
		}
	}

	// Rule 9: replies into a non-public thread cannot widen past home.
	if in.ReplyTarget != nil && in.ReplyTarget.Visibility != models.VisibilityPublic && visibility == models.VisibilityPublic {
		visibility = models.VisibilityHome
	}

	// Rule 10: locality restriction is inherited from either target.
	if channelID == nil {
		if (in.RenoteTarget != nil && in.RenoteTarget.LocalOnly) || (in.ReplyTarget != nil && in.ReplyTarget.LocalOnly) {
			localOnly = true
		}
	}

	if visibility != models.VisibilitySpecified {
		visibleUserIDs = nil
	}

	return Resolution{
		Visibility:     visibility,
		LocalOnly:      localOnly,
		ChannelID:      channelID,
		VisibleUserIDs: visibleUserIDs,
	}, nil
}

func containsKeyword(text string, words []string) bool {
	if text == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, word := range words {
		if word == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

func hostMatches(host string, hosts []string) bool {
	for _, h := range hosts {
		if strings.EqualFold(host, h) {
			return true
		}
	}
	return false
}

func strOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

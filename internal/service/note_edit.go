package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/width"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/queue"
	"quill/internal/repository"
)

// maxNoteTextLength is the hard cap applied to note text on mutation.
const maxNoteTextLength = 3000

// EditNoteInput is the delta supplied by the caller. A nil pointer (or nil
// slice) means "unspecified, inherit from the target note".
type EditNoteInput struct {
	Text           *string            `json:"text"`
	CW             *string            `json:"cw"`
	Visibility     *models.Visibility `json:"visibility"`
	VisibleUserIDs []string           `json:"visible_user_ids"`
	LocalOnly      *bool              `json:"local_only"`
	ChannelID      *string            `json:"channel_id"`
	ReplyID        *string            `json:"reply_id"`
	RenoteID       *string            `json:"renote_id"`
	FileIDs        []string           `json:"file_ids"`
	Poll           *models.Poll       `json:"poll"`

	// Silent suppresses unread markers, stream publication, webhooks, and
	// federation delivery for this edit.
	Silent bool `json:"silent"`

	// Overrides skip derivation entirely for the corresponding field, used
	// when reconstructing a federation-sourced note.
	OverrideHashtags []string       `json:"override_hashtags"`
	OverrideEmojis   []string       `json:"override_emojis"`
	OverrideMentions []*models.User `json:"-"`
}

// NoteEditService applies an edit to an existing note: it resolves
// visibility, analyzes content, resolves mentions, commits the atomic update,
// and schedules the deferred fan-out.
type NoteEditService struct {
	notes    repository.NoteRepository
	users    repository.UserRepository
	channels repository.ChannelRepository
	meta     repository.MetaRepository
	roles    repository.RoleRepository
	analyzer *ContentAnalyzer
	mentions *MentionResolver
	fanout   *EditFanout
	deferred *queue.Deferred
}

// NewNoteEditService creates the edit pipeline service.
func NewNoteEditService(
	notes repository.NoteRepository,
	users repository.UserRepository,
	channels repository.ChannelRepository,
	meta repository.MetaRepository,
	roles repository.RoleRepository,
	analyzer *ContentAnalyzer,
	mentions *MentionResolver,
	fanout *EditFanout,
	deferred *queue.Deferred,
) *NoteEditService {
	return &NoteEditService{
		notes:    notes,
		users:    users,
		channels: channels,
		meta:     meta,
		roles:    roles,
		analyzer: analyzer,
		mentions: mentions,
		fanout:   fanout,
		deferred: deferred,
	}
}

// Edit applies req to the note with the given id on behalf of actor. The
// caller gets the mutated record once the store update has committed; all
// side effects run afterwards, detached from the caller.
func (s *NoteEditService) Edit(ctx context.Context, actor *models.User, noteID string, req *EditNoteInput) (*models.Note, error) {
	span, ctx := observability.NewSpan(ctx, "note.edit")
	defer span.End()
	span.AddAttributes(attribute.String("note.id", noteID))

	note, err := s.edit(ctx, actor, noteID, req)
	if err != nil {
		span.SetError(err)
		observability.NoteEditsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.NoteEditsTotal.WithLabelValues("ok").Inc()
	return note, nil
}

func (s *NoteEditService) edit(ctx context.Context, actor *models.User, noteID string, req *EditNoteInput) (*models.Note, error) {
	target, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if target.UserID != actor.ID {
		return nil, models.NewForbiddenError("only the author can edit a note")
	}
	if req.Visibility != nil && !req.Visibility.Valid() {
		return nil, models.NewValidationError("invalid visibility")
	}

	replyTarget, err := s.resolveLinkedNote(ctx, req.ReplyID, target.ReplyID)
	if err != nil {
		return nil, err
	}
	renoteTarget, err := s.resolveLinkedNote(ctx, req.RenoteID, target.RenoteID)
	if err != nil {
		return nil, err
	}
	if req.ChannelID != nil {
		if _, err := s.channels.GetByID(ctx, *req.ChannelID); err != nil {
			return nil, err
		}
	}

	meta, err := s.meta.Get(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.roles.ProfileFor(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	renoteBlocked := false
	if renoteTarget != nil && renoteTarget.UserID != actor.ID {
		renoteBlocked, err = s.users.IsBlocking(ctx, renoteTarget.UserID, actor.ID)
		if err != nil {
			return nil, err
		}
	}

	res, err := ResolveVisibility(target, req, actor, VisibilityInputs{
		CanPublicNote:           profile.CanPublicNote,
		SensitiveWords:          meta.SensitiveWords,
		ProhibitedWords:         meta.ProhibitedWords,
		SilencedHosts:           meta.SilencedHosts,
		ReplyTarget:             replyTarget,
		RenoteTarget:            renoteTarget,
		RenoteAuthorBlocksActor: renoteBlocked,
	})
	if err != nil {
		return nil, err
	}

	text := truncateRunes(strings.TrimSpace(strOr(req.Text, target.Text)), maxNoteTextLength)
	cw := strOr(req.CW, target.CW)
	poll := target.Poll
	if req.Poll != nil {
		poll = req.Poll
	}
	var pollChoices []string
	if poll != nil {
		pollChoices = poll.Choices
	}

	analyzed := s.analyzer.Analyze(text, cw, pollChoices, req)

	var mentioned []*models.User
	if analyzed.MentionsOverridden {
		mentioned = req.OverrideMentions
	} else {
		mentioned = s.mentions.Resolve(ctx, analyzed.Mentions, actor)
	}

	mentioned, visibleUserIDs, err := s.augmentMentions(ctx, actor, replyTarget, res, mentioned)
	if err != nil {
		return nil, err
	}
	res.VisibleUserIDs = visibleUserIDs

	if res.Visibility == models.VisibilitySpecified && len(res.VisibleUserIDs) == 0 {
		return nil, models.NewValidationError("specified visibility requires at least one visible user")
	}

	updated := s.buildNote(target, req, res, analyzed, mentioned, replyTarget, renoteTarget, text, cw, poll)

	if err := s.notes.Update(ctx, updated); err != nil {
		return nil, err
	}

	// Fan-out runs outside the caller's await chain; it must never observe a
	// note that has not committed.
	s.deferred.Submit(func(ctx context.Context) {
		s.fanout.Run(ctx, updated, FanoutInputs{
			Actor:        actor,
			Profile:      profile,
			Mentioned:    mentioned,
			ReplyTarget:  replyTarget,
			RenoteTarget: renoteTarget,
			Silent:       req.Silent,
		})
	})

	return updated, nil
}

// resolveLinkedNote loads the reply or renote target referenced by the edit,
// preferring the edit's value over the target note's existing link.
func (s *NoteEditService) resolveLinkedNote(ctx context.Context, fromReq, fromTarget *string) (*models.Note, error) {
	id := fromTarget
	if fromReq != nil {
		id = fromReq
	}
	if id == nil || *id == "" {
		return nil, nil
	}
	return s.notes.GetByID(ctx, *id)
}

// augmentMentions applies the post-resolution additions: the reply author
// joins the mention set, and for specified visibility every explicitly
// visible user is folded in, with the reply author guaranteed a place on the
// visible-user list so they can always see a direct reply to them.
func (s *NoteEditService) augmentMentions(
	ctx context.Context,
	actor *models.User,
	replyTarget *models.Note,
	res Resolution,
	mentioned []*models.User,
) ([]*models.User, []string, error) {
	inSet := make(map[string]struct{}, len(mentioned))
	for _, u := range mentioned {
		inSet[u.ID] = struct{}{}
	}

	add := func(userID string) error {
		if _, ok := inSet[userID]; ok {
			return nil
		}
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		inSet[userID] = struct{}{}
		mentioned = append(mentioned, user)
		return nil
	}

	if replyTarget != nil && replyTarget.UserID != actor.ID {
		if err := add(replyTarget.UserID); err != nil {
			return nil, nil, err
		}
	}

	visibleUserIDs := res.VisibleUserIDs
	if res.Visibility == models.VisibilitySpecified {
		for _, id := range visibleUserIDs {
			if err := add(id); err != nil {
				return nil, nil, err
			}
		}
		if replyTarget != nil && replyTarget.UserID != actor.ID && !containsString(visibleUserIDs, replyTarget.UserID) {
			visibleUserIDs = append(visibleUserIDs, replyTarget.UserID)
		}
	}

	return mentioned, visibleUserIDs, nil
}

// buildNote assembles the replacement record from the resolved edit. It does
// not touch the store and never triggers fan-out.
func (s *NoteEditService) buildNote(
	target *models.Note,
	req *EditNoteInput,
	res Resolution,
	analyzed AnalyzedContent,
	mentioned []*models.User,
	replyTarget, renoteTarget *models.Note,
	text, cw string,
	poll *models.Poll,
) *models.Note {
	now := time.Now()
	note := *target

	note.Text = text
	note.CW = cw
	note.Visibility = res.Visibility
	note.LocalOnly = res.LocalOnly
	note.ChannelID = res.ChannelID
	note.VisibleUserIDs = res.VisibleUserIDs

	if req.FileIDs != nil {
		note.FileIDs = req.FileIDs
	}
	note.Poll = poll
	note.HasPoll = poll != nil

	note.Tags = normalizeTags(analyzed.Tags)
	note.Emojis = analyzed.Emojis

	note.MentionIDs = make(models.StringList, 0, len(mentioned))
	note.MentionedRemoteUsers = nil
	for _, user := range mentioned {
		note.MentionIDs = append(note.MentionIDs, user.ID)
		if !user.IsLocal() {
			note.MentionedRemoteUsers = append(note.MentionedRemoteUsers, models.MentionDetail{
				UserID:   user.ID,
				Username: user.Username,
				Host:     user.Host,
				URI:      user.URI,
			})
		}
	}

	if replyTarget != nil {
		note.ReplyID = &replyTarget.ID
		note.ReplyUserID = replyTarget.UserID
		note.ReplyUserHost = replyTarget.UserHost
		// A reply joins the target's thread; a reply to a thread root (which
		// has no thread id of its own) starts the thread at the root's id.
		if replyTarget.ThreadID != nil {
			note.ThreadID = replyTarget.ThreadID
		} else {
			note.ThreadID = &replyTarget.ID
		}
	} else {
		note.ReplyID = nil
		note.ReplyUserID = ""
		note.ReplyUserHost = ""
		note.ThreadID = nil
	}

	if renoteTarget != nil {
		note.RenoteID = &renoteTarget.ID
		note.RenoteUserID = renoteTarget.UserID
		note.RenoteUserHost = renoteTarget.UserHost
	} else {
		note.RenoteID = nil
		note.RenoteUserID = ""
		note.RenoteUserHost = ""
	}

	note.UpdatedAt = &now
	return &note
}

// normalizeTags lowercases and width-folds tags before storage so lookups
// are insensitive to case and full/half-width variants.
func normalizeTags(tags []string) models.StringList {
	out := make(models.StringList, 0, len(tags))
	for _, tag := range tags {
		out = append(out, strings.ToLower(width.Fold.String(tag)))
	}
	return out
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

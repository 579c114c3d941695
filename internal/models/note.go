package models

import (
	"time"
)

// Visibility is the distribution class of a note.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityHome      Visibility = "home"
	VisibilityFollowers Visibility = "followers"
	VisibilitySpecified Visibility = "specified"
)

// Valid reports whether v is one of the four visibility classes.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityHome, VisibilityFollowers, VisibilitySpecified:
		return true
	}
	return false
}

// StringList is a []string persisted as a JSON column.
type StringList []string

// Poll is the poll payload attached to a note.
type Poll struct {
	Choices   []string   `json:"choices"`
	Multiple  bool       `json:"multiple"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MentionDetail is the denormalized record of a remote mentioned user, kept on
// the note so remote mentions survive without a user lookup.
type MentionDetail struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Host     string `json:"host"`
	URI      string `json:"uri"`
}

// Note is the denormalized post record. Created by the publish path; mutated
// in place by the edit pipeline; never deleted here.
//
// Invariants: Visibility is one of the four classes; specified visibility
// implies a non-empty VisibleUserIDs; a channel note is always
// public + localOnly with no visible users.
type Note struct {
	ID       string `gorm:"primaryKey;size:32" json:"id"`
	UserID   string `gorm:"size:32;not null;index" json:"user_id"`
	UserHost string `gorm:"size:255" json:"user_host"` // empty for local authors

	Text string `gorm:"type:text" json:"text"`
	CW   string `gorm:"size:512" json:"cw"`

	Visibility Visibility `gorm:"size:16;not null" json:"visibility"`
	LocalOnly  bool       `json:"local_only"`
	ChannelID  *string    `gorm:"size:32;index" json:"channel_id,omitempty"`

	ReplyID  *string `gorm:"size:32;index" json:"reply_id,omitempty"`
	RenoteID *string `gorm:"size:32;index" json:"renote_id,omitempty"`
	ThreadID *string `gorm:"size:32;index" json:"thread_id,omitempty"`

	FileIDs StringList `gorm:"serializer:json" json:"file_ids"`
	HasPoll bool       `json:"has_poll"`
	Poll    *Poll      `gorm:"serializer:json" json:"poll,omitempty"`

	Tags           StringList `gorm:"serializer:json" json:"tags"`
	Emojis         StringList `gorm:"serializer:json" json:"emojis"`
	MentionIDs     StringList `gorm:"serializer:json" json:"mention_ids"`
	VisibleUserIDs StringList `gorm:"serializer:json" json:"visible_user_ids"`

	// Denormalized reply/renote authorship, so fan-out does not need a lookup.
	ReplyUserID    string `gorm:"size:32" json:"reply_user_id,omitempty"`
	ReplyUserHost  string `gorm:"size:255" json:"reply_user_host,omitempty"`
	RenoteUserID   string `gorm:"size:32" json:"renote_user_id,omitempty"`
	RenoteUserHost string `gorm:"size:255" json:"renote_user_host,omitempty"`

	MentionedRemoteUsers []MentionDetail `gorm:"serializer:json" json:"mentioned_remote_users,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	// Nil until the first edit; the edit pipeline sets it, not the ORM.
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
}

// IsLocal reports whether the note's author belongs to this instance.
func (n *Note) IsLocal() bool { return n.UserHost == "" }

// IsRenote reports whether the note points at another note as a renote.
func (n *Note) IsRenote() bool { return n.RenoteID != nil }

// IsQuote reports whether a renote carries its own content. A renote with
// text, CW, files, or a poll is a quote, not a plain repost.
func (n *Note) IsQuote() bool {
	return n.IsRenote() && (n.Text != "" || n.CW != "" || len(n.FileIDs) > 0 || n.HasPoll)
}

// NoteUnread marks a note a user has not seen yet.
type NoteUnread struct {
	ID          string `gorm:"primaryKey;size:32"`
	UserID      string `gorm:"size:32;not null;index"`
	NoteID      string `gorm:"size:32;not null;index"`
	IsSpecified bool
	CreatedAt   time.Time
}

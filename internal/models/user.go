package models

import "time"

// User is a local or remote account. Host is empty for local users.
type User struct {
	ID       string `gorm:"primaryKey;size:32" json:"id"`
	Username string `gorm:"size:128;not null;uniqueIndex:idx_users_acct" json:"username"`
	Host     string `gorm:"size:255;uniqueIndex:idx_users_acct" json:"host"`

	// ActivityPub endpoints, populated for remote users.
	URI         string `gorm:"size:512" json:"uri,omitempty"`
	Inbox       string `gorm:"size:512" json:"-"`
	SharedInbox string `gorm:"size:512" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// IsLocal reports whether the user belongs to this instance.
func (u *User) IsLocal() bool { return u.Host == "" }

// Acct returns the canonical username@host form ("username" for locals).
func (u *User) Acct() string {
	if u.Host == "" {
		return u.Username
	}
	return u.Username + "@" + u.Host
}

// Instance is a remote peer this server has federated with.
type Instance struct {
	Host             string    `gorm:"primaryKey;size:255" json:"host"`
	NotesCount       int64     `json:"notes_count"`
	FirstRetrievedAt time.Time `json:"first_retrieved_at"`
}

// Channel is a topic timeline notes can be published into. Channel notes are
// always public, local-only, with no explicit recipients.
type Channel struct {
	ID          string     `gorm:"primaryKey;size:32" json:"id"`
	Name        string     `gorm:"size:128;not null" json:"name"`
	LastNotedAt *time.Time `json:"last_noted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Blocking records that Blocker has blocked Blockee.
type Blocking struct {
	ID        string    `gorm:"primaryKey;size:32"`
	BlockerID string    `gorm:"size:32;not null;uniqueIndex:idx_blockings_pair"`
	BlockeeID string    `gorm:"size:32;not null;uniqueIndex:idx_blockings_pair"`
	CreatedAt time.Time
}

// Webhook is a user-registered callback subscribed to a set of event types.
type Webhook struct {
	ID        string     `gorm:"primaryKey;size:32" json:"id"`
	UserID    string     `gorm:"size:32;not null;index" json:"user_id"`
	URL       string     `gorm:"size:512;not null" json:"url"`
	Secret    string     `gorm:"size:128" json:"-"`
	Active    bool       `json:"active"`
	On        StringList `gorm:"serializer:json" json:"on"`
	CreatedAt time.Time  `json:"created_at"`
}

// Subscribed reports whether the webhook wants the given event type.
func (w *Webhook) Subscribed(event string) bool {
	for _, e := range w.On {
		if e == event {
			return true
		}
	}
	return false
}

// Role groups users and carries posting policy plus an optional dedicated
// timeline.
type Role struct {
	ID            string    `gorm:"primaryKey;size:32" json:"id"`
	Name          string    `gorm:"size:128;not null" json:"name"`
	CanPublicNote bool      `gorm:"default:true" json:"can_public_note"`
	HasTimeline   bool      `json:"has_timeline"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserRole assigns a role to a user.
type UserRole struct {
	ID        string    `gorm:"primaryKey;size:32"`
	UserID    string    `gorm:"size:32;not null;uniqueIndex:idx_user_roles_pair"`
	RoleID    string    `gorm:"size:32;not null;uniqueIndex:idx_user_roles_pair"`
	CreatedAt time.Time
}

// PolicyProfile is the effective posting policy for one user, resolved from
// their role assignments.
type PolicyProfile struct {
	CanPublicNote   bool
	TimelineRoleIDs []string
}

// Meta is the single-row table of instance-wide moderation settings.
type Meta struct {
	ID                   uint       `gorm:"primaryKey"`
	SensitiveWords       StringList `gorm:"serializer:json"`
	ProhibitedWords      StringList `gorm:"serializer:json"`
	SilencedHosts        StringList `gorm:"serializer:json"`
	EnableInstanceCharts bool
	UpdatedAt            time.Time
}

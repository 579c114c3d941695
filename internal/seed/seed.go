// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"

	"quill/internal/database"
	"quill/internal/models"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumNotes    int
	ShouldClean bool
}

var channelNames = []string{
	"general", "music", "gaming", "art", "photography", "cooking",
	"programming", "linux", "books", "travel", "science", "pets",
}

var remoteHosts = []string{
	"example.social", "fedi.example.net", "notes.example.org",
}

// Seeder populates the database with fake data.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a seeder on the given database handle.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll wipes every seeded table.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range database.PersistentModels() {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run seeds users, channels, roles, instance settings, and notes.
func (s *Seeder) Run(opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	if err := s.seedMeta(); err != nil {
		return err
	}
	channels, err := s.seedChannels()
	if err != nil {
		return err
	}
	users, err := s.seedUsers(opts.NumUsers)
	if err != nil {
		return err
	}
	if err := s.seedNotes(users, channels, opts.NumNotes); err != nil {
		return err
	}

	log.Printf("Seeded %d users and %d notes", opts.NumUsers, opts.NumNotes)
	return nil
}

func (s *Seeder) seedMeta() error {
	meta := models.Meta{
		SensitiveWords:       models.StringList{"nsfw", "spoiler"},
		ProhibitedWords:      models.StringList{"badword"},
		SilencedHosts:        models.StringList{"silenced.example.com"},
		EnableInstanceCharts: true,
	}
	return s.db.Create(&meta).Error
}

func (s *Seeder) seedChannels() ([]models.Channel, error) {
	channels := make([]models.Channel, 0, len(channelNames))
	for _, name := range channelNames {
		ch := models.Channel{
			ID:   models.NewID(time.Now()),
			Name: name,
		}
		if err := s.db.Create(&ch).Error; err != nil {
			return nil, fmt.Errorf("create channel %s: %w", name, err)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := strings.ToLower(gofakeit.Username())
		user := models.User{
			ID:       models.NewID(time.Now()),
			Username: fmt.Sprintf("%s%d", username, i),
		}
		// Roughly a quarter of accounts are remote.
		if rand.Intn(4) == 0 {
			host := remoteHosts[rand.Intn(len(remoteHosts))]
			user.Host = host
			user.URI = fmt.Sprintf("https://%s/users/%s", host, user.Username)
			user.Inbox = fmt.Sprintf("https://%s/users/%s/inbox", host, user.Username)
			user.SharedInbox = fmt.Sprintf("https://%s/inbox", host)
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", user.Username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedNotes(users []models.User, channels []models.Channel, count int) error {
	if len(users) == 0 {
		return nil
	}
	visibilities := []models.Visibility{
		models.VisibilityPublic, models.VisibilityPublic, models.VisibilityPublic,
		models.VisibilityHome, models.VisibilityFollowers,
	}

	var created []models.Note
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		note := models.Note{
			ID:         models.NewID(time.Now()),
			UserID:     author.ID,
			UserHost:   author.Host,
			Text:       gofakeit.Sentence(rand.Intn(20) + 3),
			Visibility: visibilities[rand.Intn(len(visibilities))],
			CreatedAt:  time.Now().Add(-time.Duration(rand.Intn(720)) * time.Hour),
		}
		if rand.Intn(10) == 0 && author.IsLocal() {
			note.ChannelID = &channels[rand.Intn(len(channels))].ID
			note.Visibility = models.VisibilityPublic
			note.LocalOnly = true
		}
		if rand.Intn(5) == 0 && len(created) > 0 {
			parent := created[rand.Intn(len(created))]
			if parent.ChannelID == nil && note.ChannelID == nil {
				note.ReplyID = &parent.ID
				note.ReplyUserID = parent.UserID
				note.ReplyUserHost = parent.UserHost
				if parent.ThreadID != nil {
					note.ThreadID = parent.ThreadID
				} else {
					note.ThreadID = &parent.ID
				}
			}
		}
		if err := s.db.Create(&note).Error; err != nil {
			return fmt.Errorf("create note: %w", err)
		}
		created = append(created, note)
	}
	return nil
}

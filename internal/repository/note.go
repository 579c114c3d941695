// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"quill/internal/models"

	"gorm.io/gorm"
)

// NoteRepository defines the interface for note data operations.
type NoteRepository interface {
	GetByID(ctx context.Context, id string) (*models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	MarkUnread(ctx context.Context, userID, noteID string, specified bool) error
}

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository creates a new note repository.
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	var note models.Note
	if err := r.db.WithContext(ctx).First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("note", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &note, nil
}

// Update replaces the stored record atomically, keyed by note id. A unique
// violation is reclassified into a duplicate error so callers can distinguish
// it from other storage failures.
func (r *noteRepository) Update(ctx context.Context, note *models.Note) error {
	if err := r.db.WithContext(ctx).Save(note).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateError("note")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *noteRepository) MarkUnread(ctx context.Context, userID, noteID string, specified bool) error {
	unread := models.NoteUnread{
		ID:          models.NewID(time.Now()),
		UserID:      userID,
		NoteID:      noteID,
		IsSpecified: specified,
	}
	if err := r.db.WithContext(ctx).Create(&unread).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

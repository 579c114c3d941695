package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// RoleRepository resolves the effective posting policy for a user from their
// role assignments.
type RoleRepository interface {
	ProfileFor(ctx context.Context, userID string) (*models.PolicyProfile, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// ProfileFor joins the user's roles. A user with no roles keeps the default
// policy; public posting is denied only when every assigned role denies it.
func (r *roleRepository) ProfileFor(ctx context.Context, userID string) (*models.PolicyProfile, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Find(&roles).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	profile := &models.PolicyProfile{CanPublicNote: true}
	if len(roles) > 0 {
		allowed := false
		for _, role := range roles {
			if role.CanPublicNote {
				allowed = true
			}
			if role.HasTimeline {
				profile.TimelineRoleIDs = append(profile.TimelineRoleIDs, role.ID)
			}
		}
		profile.CanPublicNote = allowed
	}
	return profile, nil
}

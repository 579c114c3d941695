package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"quill/internal/models"
)

func TestRoleRepository_NoRolesDefaultsToAllowed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoleRepository(db)

	profile, err := repo.ProfileFor(context.Background(), "roleless-user")
	require.NoError(t, err)
	assert.True(t, profile.CanPublicNote)
	assert.Empty(t, profile.TimelineRoleIDs)
}

func TestRoleRepository_AnyAllowingRoleWins(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Role{ID: "rr-deny", Name: "restricted", CanPublicNote: false}).Error)
	require.NoError(t, db.Create(&models.Role{ID: "rr-allow", Name: "normal", CanPublicNote: true}).Error)
	require.NoError(t, db.Create(&models.UserRole{ID: "rr-ur1", UserID: "rr-u1", RoleID: "rr-deny"}).Error)
	require.NoError(t, db.Create(&models.UserRole{ID: "rr-ur2", UserID: "rr-u1", RoleID: "rr-allow"}).Error)

	profile, err := repo.ProfileFor(ctx, "rr-u1")
	require.NoError(t, err)
	assert.True(t, profile.CanPublicNote)
}

func TestRoleRepository_AllRolesDenyingDenies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Role{ID: "rr-deny2", Name: "restricted2", CanPublicNote: false}).Error)
	require.NoError(t, db.Create(&models.UserRole{ID: "rr-ur3", UserID: "rr-u2", RoleID: "rr-deny2"}).Error)

	profile, err := repo.ProfileFor(ctx, "rr-u2")
	require.NoError(t, err)
	assert.False(t, profile.CanPublicNote)
}

func TestRoleRepository_CollectsTimelineRoles(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Role{ID: "rr-tl", Name: "vip", CanPublicNote: true, HasTimeline: true}).Error)
	require.NoError(t, db.Create(&models.Role{ID: "rr-plain", Name: "plain", CanPublicNote: true}).Error)
	require.NoError(t, db.Create(&models.UserRole{ID: "rr-ur4", UserID: "rr-u3", RoleID: "rr-tl"}).Error)
	require.NoError(t, db.Create(&models.UserRole{ID: "rr-ur5", UserID: "rr-u3", RoleID: "rr-plain"}).Error)

	profile, err := repo.ProfileFor(ctx, "rr-u3")
	require.NoError(t, err)
	assert.Equal(t, []string{"rr-tl"}, profile.TimelineRoleIDs)
}

func TestMetaRepository_MissingRowYieldsEmptySettings(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Meta{}).Error)

	repo := NewMetaRepository(db)
	meta, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, meta.ProhibitedWords)
	assert.False(t, meta.EnableInstanceCharts)
}

func TestMetaRepository_ReturnsStoredSettings(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Meta{}).Error)
	require.NoError(t, db.Create(&models.Meta{
		SensitiveWords:  models.StringList{"spoiler"},
		ProhibitedWords: models.StringList{"banned"},
	}).Error)

	repo := NewMetaRepository(db)
	meta, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"spoiler"}, meta.SensitiveWords)
	assert.Equal(t, models.StringList{"banned"}, meta.ProhibitedWords)
}

package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"kinship/internal/database"
	"kinship/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB returns a fresh in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

// mkUser inserts a user with a profile; an empty username leaves it NULL.
func mkUser(t *testing.T, db *gorm.DB, username string) uint {
	t.Helper()
	var email string
	if username == "" {
		email = fmt.Sprintf("anon%d@example.com", time.Now().UnixNano())
	} else {
		email = username + "@example.com"
	}
	user := models.User{Email: email, Password: "x"}
	profile := models.Profile{Username: models.NullableString(username)}
	require.NoError(t, NewUserRepository(db).CreateWithProfile(t.Context(), &user, &profile))
	return user.ID
}

func mkFollow(t *testing.T, db *gorm.DB, follower, following uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{FollowerID: follower, FollowingID: following}).Error)
}

func mkPost(t *testing.T, db *gorm.DB, author uint, content string) uint {
	t.Helper()
	post := models.Post{UserID: author, Content: &content}
	require.NoError(t, NewPostRepository(db).Create(t.Context(), &post))
	return post.ID
}

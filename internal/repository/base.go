// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"kinship/internal/database"
	"kinship/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate wraps unique-constraint violations.
	ErrDuplicate = errors.New("duplicate record")
	// ErrMissingUsers is returned when a referenced user id does not exist.
	ErrMissingUsers = errors.New("one or more users do not exist")
)

const pgUniqueViolation = "23505"

// readDB prefers the configured replica. Read-after-write paths use the
// primary directly.
func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil && db != database.DB {
		return db
	}
	return primary
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}

// writeErr tags unique violations with ErrDuplicate and passes everything else through.
func writeErr(err error) error {
	if isUniqueConstraintError(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func createNotifications(tx *gorm.DB, notifs []models.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	return tx.Create(&notifs).Error
}

// DistinctIDs drops zero and repeated ids, keeping first-seen order.
func DistinctIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func countUsers(tx *gorm.DB, ids []uint) (int64, error) {
	var n int64
	err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&n).Error
	return n, err
}

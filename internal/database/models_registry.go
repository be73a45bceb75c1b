package database

import "kinship/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Profile{},
		&models.Follow{},
		&models.Post{},
		&models.Like{},
		&models.SavedPost{},
		&models.Comment{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
		&models.Notification{},
	}
}

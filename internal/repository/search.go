package repository

import (
	"context"
	"strings"

	"kinship/internal/models"

	"gorm.io/gorm"
)

// SearchLimit caps each result list.
const SearchLimit = 10

// SearchRepository runs case-insensitive substring searches.
type SearchRepository interface {
	Users(ctx context.Context, term string) ([]models.UserSummary, error)
	Posts(ctx context.Context, term string) ([]models.PostSummary, error)
}

type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository returns a new SearchRepository implementation.
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

func (r *searchRepository) Users(ctx context.Context, term string) ([]models.UserSummary, error) {
	pattern := likePattern(term)
	var out []models.UserSummary
	err := readDB(r.db).WithContext(ctx).
		Table("users AS u").
		Select("u.id, p.username, p.full_name, p.avatar_url").
		Joins("JOIN profiles p ON p.user_id = u.id").
		Where(`LOWER(p.username) LIKE ? ESCAPE '\' OR LOWER(p.full_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("u.id ASC").
		Limit(SearchLimit).
		Scan(&out).Error
	return out, err
}

func (r *searchRepository) Posts(ctx context.Context, term string) ([]models.PostSummary, error) {
	var out []models.PostSummary
	err := readDB(r.db).WithContext(ctx).
		Table("posts AS po").
		Select(`po.id, po.content, po.image_url, po.created_at,
	u.id AS user_id, pr.username AS author_username, pr.avatar_url AS author_avatar`).
		Joins("JOIN users u ON u.id = po.user_id").
		Joins("LEFT JOIN profiles pr ON pr.user_id = u.id").
		Where(`LOWER(po.content) LIKE ? ESCAPE '\'`, likePattern(term)).
		Order("po.created_at DESC, po.id DESC").
		Limit(SearchLimit).
		Scan(&out).Error
	return out, err
}

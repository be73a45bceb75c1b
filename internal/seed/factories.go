// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"kinship/internal/middleware"
	"kinship/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Kinship#Demo2024"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	hash   string
	nextID uint
}

// NewFactory creates a Factory bound to db. With opts.DryRun nothing is
// written and ids are synthetic.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	f := &Factory{db: db, opts: opts, faker: gofakeit.New(0), nextID: 1000}
	if opts.SkipBcrypt {
		f.hash = DefaultPassword
	} else {
		h, _ := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		f.hash = string(h)
	}
	return f
}

func (f *Factory) syntheticID() uint {
	f.nextID++
	return f.nextID
}

// username returns a lowercase handle that passes registration validation.
func (f *Factory) username() string {
	base := strings.ToLower(f.faker.Username())
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, base)
	base = strings.Trim(base, "_")
	if len(base) < 3 {
		base = "user"
	}
	if len(base) > 40 {
		base = base[:40]
	}
	return fmt.Sprintf("%s%d", base, f.faker.Number(100, 9999))
}

// CreateUser persists a user with a filled-in profile.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	handle := f.username()
	user := &models.User{
		Email:    handle + "@example.com",
		Password: f.hash,
		Profile: &models.Profile{
			Username:  models.NullableString(handle),
			FullName:  models.NullableString(f.faker.Name()),
			Bio:       models.NullableString(f.faker.Sentence(10)),
			Website:   models.NullableString(f.faker.URL()),
			AvatarURL: models.NullableString("https://i.pravatar.cc/150?u=" + handle),
		},
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		user.ID = f.syntheticID()
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs an unsaved post spread over the last MaxDays days.
// Roughly a third of posts carry an image.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	age := time.Duration(rand.IntN(maxDays*24*60)) * time.Minute

	post := &models.Post{
		UserID:    author.ID,
		Content:   models.NullableString(f.faker.Paragraph(1, 3, 12, " ")),
		CreatedAt: time.Now().Add(-age),
	}
	if rand.IntN(3) == 0 {
		post.ImageURL = models.NullableString(fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()))
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in chunks of BatchSize.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			p.ID = f.syntheticID()
		}
		middleware.Logger.Info("dry-run: skipped post batch", slog.Int("count", len(posts)))
		return nil
	}
	return f.db.Omit(clause.Associations).CreateInBatches(posts, f.opts.batchSize()).Error
}

// CreateComment persists a comment; parent may be nil.
func (f *Factory) CreateComment(author *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  author.ID,
		Content: f.faker.Sentence(8),
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}
	if f.opts.DryRun {
		comment.ID = f.syntheticID()
		return comment, nil
	}
	if err := f.db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike records a like and reports whether it was new.
func (f *Factory) CreateLike(user *models.User, post *models.Post) (bool, error) {
	if f.opts.DryRun {
		return true, nil
	}
	res := f.db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: user.ID, PostID: post.ID})
	return res.RowsAffected > 0, res.Error
}

// CreateFollow records follower -> following and reports whether a new
// edge was written.
func (f *Factory) CreateFollow(follower, following *models.User) (bool, error) {
	if follower.ID == following.ID {
		return false, nil
	}
	if f.opts.DryRun {
		return true, nil
	}
	res := f.db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID})
	return res.RowsAffected > 0, res.Error
}

// CreateConversation persists a conversation with the given members. More
// than two members, or a non-empty name, makes it a group.
func (f *Factory) CreateConversation(creator *models.User, name string, members ...*models.User) (*models.Conversation, error) {
	conv := &models.Conversation{CreatedBy: &creator.ID}
	if name != "" || len(members) > 1 {
		conv.IsGroup = true
		if name == "" {
			name = f.faker.HipsterWord()
		}
		conv.GroupName = &name
	}
	if f.opts.DryRun {
		conv.ID = f.syntheticID()
		return conv, nil
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(conv).Error; err != nil {
			return err
		}
		rows := []models.Participant{{ConversationID: conv.ID, UserID: creator.ID}}
		for _, m := range members {
			if m.ID != creator.ID {
				rows = append(rows, models.Participant{ConversationID: conv.ID, UserID: m.ID})
			}
		}
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateMessage persists a user message in conv from sender.
func (f *Factory) CreateMessage(conv *models.Conversation, sender *models.User, overrides ...func(*models.Message)) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Content:        f.faker.Sentence(10),
		Kind:           models.MessageKindUser,
	}
	for _, override := range overrides {
		override(msg)
	}
	if f.opts.DryRun {
		msg.ID = f.syntheticID()
		return msg, nil
	}
	if err := f.db.Omit(clause.Associations).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

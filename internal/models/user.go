// Package models contains data structures for the application's domain models.
package models

import "time"

// User is an account identity. Public fields live on Profile.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// Profile is the public face of a User. Username may be unset for accounts
// created outside registration.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Username  *string   `gorm:"type:varchar(50);uniqueIndex" json:"username"`
	FullName  *string   `gorm:"type:varchar(100)" json:"full_name"`
	Bio       *string   `gorm:"type:text" json:"bio"`
	Website   *string   `gorm:"type:varchar(255)" json:"website"`
	AvatarURL *string   `gorm:"type:text" json:"avatar_url"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}

// DisplayName is the name used in system messages.
func (p *Profile) DisplayName() string {
	if p == nil || p.Username == nil || *p.Username == "" {
		return "User"
	}
	return *p.Username
}

// UserSummary is the compact identity attached to members, participants,
// friends and search hits.
type UserSummary struct {
	ID        uint    `json:"id"`
	Email     string  `json:"email,omitempty"`
	Username  *string `json:"username"`
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url"`
}

// ProfileStats holds the counters shown on a profile page.
type ProfileStats struct {
	Posts     int64 `json:"posts"`
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// SuggestedUser is a discovery entry: someone the viewer does not follow yet.
type SuggestedUser struct {
	ID             uint      `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Username       *string   `json:"username"`
	FullName       *string   `json:"full_name"`
	AvatarURL      *string   `json:"avatar_url"`
	Bio            *string   `json:"bio"`
	IsFollowing    bool      `gorm:"-" json:"is_following"`
	MutualCount    int64     `json:"mutual_count"`
	MutualUsername *string   `json:"mutual_username"`
}

// ProfileUser is the user block of a profile page. Email is only set on
// public lookups by id.
type ProfileUser struct {
	ID        uint    `json:"id"`
	Email     string  `json:"email,omitempty"`
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
	Website   *string `json:"website"`
}

// ProfileView is a profile page: identity plus counters.
type ProfileView struct {
	User  ProfileUser  `json:"user"`
	Stats ProfileStats `json:"stats"`
}

// NewProfileUser flattens a user and its (possibly missing) profile.
func NewProfileUser(u *User) ProfileUser {
	out := ProfileUser{ID: u.ID}
	if p := u.Profile; p != nil {
		out.Username = p.Username
		out.FullName = p.FullName
		out.Bio = p.Bio
		out.AvatarURL = p.AvatarURL
		out.Website = p.Website
	}
	return out
}

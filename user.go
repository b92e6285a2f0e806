// File: user.go

package authkit

import (
	"time"

	"github.com/google/uuid"
)

// Role is the user role enumeration.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the persisted identity record.
//
// PasswordHash never leaves the credential verifier / token service boundary:
// result types built from a User (UserResult) carry only id, name and email.
type User struct {
	ID                     string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	FullName               string     `gorm:"column:full_name;size:50;not null;index:idx_full_name" bson:"full_name" json:"fullName"`
	Email                  string     `gorm:"column:email;not null;uniqueIndex:idx_email" bson:"email" json:"email"`
	PasswordHash           string     `gorm:"column:password;not null" bson:"password" json:"-"`
	Role                   Role       `gorm:"column:role;size:20;not null" bson:"role" json:"role"`
	ProfilePictureURL      string     `gorm:"column:profile_picture_url;size:1025" bson:"profile_picture_url,omitempty" json:"profilePictureUrl,omitempty"`
	ProfilePicturePublicID string     `gorm:"column:profile_picture_public_id;size:255" bson:"profile_picture_public_id,omitempty" json:"-"`
	EmailVerified          bool       `gorm:"column:is_email_verified;not null" bson:"is_email_verified" json:"emailVerified"`
	EmailVerifiedAt        *time.Time `gorm:"column:email_verified_at" bson:"email_verified_at,omitempty" json:"emailVerifiedAt,omitempty"`
	CreatedAt              time.Time  `gorm:"column:created_at;not null" bson:"created_at" json:"createdAt"`
	UpdatedAt              time.Time  `gorm:"column:updated_at" bson:"updated_at" json:"updatedAt"`
}

// TableName sets the relational table name for User.
func (User) TableName() string {
	return "users"
}

// NewUser builds a registration-time user record with a fresh id and the
// default USER role. The email is stored as given; uniqueness comparisons are
// case-insensitive at the store level.
func NewUser(fullName, email, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// VerifyEmail marks the email address as verified.
func (u *User) VerifyEmail(now time.Time) {
	u.EmailVerified = true
	u.EmailVerifiedAt = &now
	u.UpdatedAt = now
}

// UpdateFullName replaces the display name.
func (u *User) UpdateFullName(fullName string) {
	u.FullName = fullName
	u.UpdatedAt = time.Now()
}

// UpdateEmail replaces the email address.
func (u *User) UpdateEmail(email string) {
	u.Email = email
	u.UpdatedAt = time.Now()
}

// UpdatePassword replaces the stored password hash.
func (u *User) UpdatePassword(passwordHash string) {
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
}

// UpdateProfilePicture replaces the profile picture reference.
func (u *User) UpdateProfilePicture(url, publicID string) {
	u.ProfilePictureURL = url
	u.ProfilePicturePublicID = publicID
	u.UpdatedAt = time.Now()
}

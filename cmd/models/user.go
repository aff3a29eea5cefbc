package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username     string `gorm:"column:username;size:150;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	IsAdmin      bool   `gorm:"column:is_admin;default:false" json:"is_admin"`
	IsBlocked    bool   `gorm:"column:is_blocked;default:false" json:"is_blocked"`

	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`

	Posts         []Post         `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;" json:"posts,omitempty"`
	Comments      []Comment      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"comments,omitempty"`
	Reactions     []PostLike     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"reactions,omitempty"`
	Subscriptions []Subscription `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"subscriptions,omitempty"`
}

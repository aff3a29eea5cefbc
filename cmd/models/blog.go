package models

import (
	"time"

	"gorm.io/gorm"
)

type Category struct {
	gorm.Model
	Name        string `gorm:"column:name;size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`

	Posts         []Post         `gorm:"foreignKey:CategoryID" json:"posts,omitempty"`
	Subscriptions []Subscription `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE;" json:"-"`
}

type Tag struct {
	gorm.Model
	Name string `gorm:"column:name;size:50;uniqueIndex;not null" json:"name"`
}

type Post struct {
	gorm.Model
	Title       string    `gorm:"column:title;size:200;not null" json:"title"`
	Content     string    `gorm:"column:content;type:text;not null" json:"content"`
	ImagePath   string    `gorm:"column:image_path;size:500" json:"image_path,omitempty"`
	Likes       int       `gorm:"column:likes;default:0" json:"likes"`
	Dislikes    int       `gorm:"column:dislikes;default:0" json:"dislikes"`
	PublishDate time.Time `gorm:"column:publish_date;index" json:"publish_date"`

	AuthorID   uint      `gorm:"column:author_id;not null" json:"author_id"`
	CategoryID *uint     `gorm:"column:category_id" json:"category_id"`
	Author     *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Category   *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL;" json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:post_tags;" json:"tags,omitempty"`
	Comments   []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE;" json:"comments,omitempty"`
	Reactions  []PostLike `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE;" json:"reactions,omitempty"`
}

type Comment struct {
	gorm.Model
	Content string `gorm:"column:content;type:text;not null" json:"content"`
	UserID  uint   `gorm:"column:user_id;not null" json:"user_id"`
	PostID  uint   `gorm:"column:post_id;not null" json:"post_id"`
	// ParentID is nil for top-level comments. A comment with a non-nil
	// ParentID can never itself be a parent (max depth 2).
	ParentID *uint `gorm:"column:parent_id" json:"parent_id"`

	User    *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Replies []Comment `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE;" json:"replies,omitempty"`
}

// PostLike holds one reaction per (user, post). IsLike true = like, false = dislike.
type PostLike struct {
	gorm.Model
	UserID uint `gorm:"column:user_id;not null;uniqueIndex:idx_user_post" json:"user_id"`
	PostID uint `gorm:"column:post_id;not null;uniqueIndex:idx_user_post" json:"post_id"`
	IsLike bool `gorm:"column:is_like;not null" json:"is_like"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type Subscription struct {
	gorm.Model
	UserID     uint `gorm:"column:user_id;not null;uniqueIndex:idx_user_category" json:"user_id"`
	CategoryID uint `gorm:"column:category_id;not null;uniqueIndex:idx_user_category" json:"category_id"`

	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

type ForbiddenWord struct {
	gorm.Model
	Word string `gorm:"column:word;size:100;uniqueIndex;not null" json:"word"`
}

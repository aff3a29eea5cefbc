package comment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/muhammadmasoud/blogApp/cmd/models"
	"github.com/muhammadmasoud/blogApp/cmd/utils"
	"github.com/muhammadmasoud/blogApp/service/moderation"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	filter *moderation.Filter
}

func NewHandler(db *gorm.DB, filter *moderation.Filter) *Handler {
	return &Handler{db: db, filter: filter}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/posts/{post_id:[0-9]+}/comments", h.GetComments).Methods("GET")
	router.HandleFunc("/posts/{post_id:[0-9]+}/comments", utils.AuthMiddleware(h.CreateComment)).Methods("POST")
	router.HandleFunc("/comments/{id:[0-9]+}/reply", utils.AuthMiddleware(h.ReplyToComment)).Methods("POST")
	router.HandleFunc("/comments/{id:[0-9]+}", utils.AdminMiddleware(h.db, h.DeleteComment)).Methods("DELETE")
}

// GetComments returns top-level comments newest-first, each with its direct
// replies nested newest-first. Replies of replies do not exist by construction.
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["post_id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	var comments []models.Comment
	err = h.db.Where("post_id = ? AND parent_id IS NULL", postID).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Replies.User").
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

// CreateComment adds a comment to a post, optionally as a reply to a
// top-level comment. Content is masked against the forbidden-word list before
// it is stored.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["post_id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var request struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(request.Content) == "" {
		http.Error(w, "Content cannot be blank", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	if request.ParentID != nil {
		var parent models.Comment
		if err := h.db.First(&parent, *request.ParentID).Error; err != nil {
			http.Error(w, "Parent comment not found", http.StatusNotFound)
			return
		}
		if parent.PostID != post.ID {
			http.Error(w, "Parent comment belongs to another post", http.StatusBadRequest)
			return
		}
		if parent.ParentID != nil {
			http.Error(w, "Only single-level replies allowed", http.StatusBadRequest)
			return
		}
	}

	comment := models.Comment{
		Content:  h.filter.Mask(request.Content),
		UserID:   userID,
		PostID:   post.ID,
		ParentID: request.ParentID,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		http.Error(w, "Error creating comment", http.StatusInternalServerError)
		return
	}

	h.db.Preload("User").First(&comment, comment.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(comment)
}

// ReplyToComment creates a reply to a top-level comment. Replying to a reply
// is rejected.
func (h *Handler) ReplyToComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	parentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	var request struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(request.Content) == "" {
		http.Error(w, "Content cannot be blank", http.StatusBadRequest)
		return
	}

	var parent models.Comment
	if err := h.db.First(&parent, parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Comment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error retrieving comment", http.StatusInternalServerError)
		return
	}

	if parent.ParentID != nil {
		http.Error(w, "Only single-level replies allowed", http.StatusBadRequest)
		return
	}

	reply := models.Comment{
		Content:  h.filter.Mask(request.Content),
		UserID:   userID,
		PostID:   parent.PostID,
		ParentID: &parent.ID,
	}

	if err := h.db.Create(&reply).Error; err != nil {
		http.Error(w, "Error creating reply", http.StatusInternalServerError)
		return
	}

	h.db.Preload("User").First(&reply, reply.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(reply)
}

// DeleteComment removes a comment and its replies. Admin only.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	commentID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}

	tx := h.db.Begin()

	if err := tx.Unscoped().Where("parent_id = ?", comment.ID).Delete(&models.Comment{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting replies", http.StatusInternalServerError)
		return
	}
	if err := tx.Unscoped().Delete(&comment).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting comment", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting comment", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package post

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/muhammadmasoud/blogApp/cmd/models"
	"github.com/muhammadmasoud/blogApp/cmd/utils"
	"gorm.io/gorm"
)

var validate = validator.New()

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/posts", utils.AuthMiddleware(h.CreatePost)).Methods("POST")
	router.HandleFunc("/posts", h.GetPosts).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", h.GetPost).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}", utils.AuthMiddleware(h.UpdatePost)).Methods("PUT", "PATCH")
	router.HandleFunc("/posts/{id:[0-9]+}", utils.AuthMiddleware(h.DeletePost)).Methods("DELETE")

	// Reaction route
	router.HandleFunc("/posts/{id:[0-9]+}/react", utils.AuthMiddleware(h.ReactToPost)).Methods("POST")
}

type createPostRequest struct {
	Title   string `validate:"required,max=200"`
	Content string `validate:"required"`
}

// CreatePost creates a new post from a multipart form (title, content,
// category_id, comma-separated tags, optional image).
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	request := createPostRequest{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Content: r.FormValue("content"),
	}
	if err := validate.Struct(request); err != nil {
		http.Error(w, "Title and content are required", http.StatusBadRequest)
		return
	}

	post := models.Post{
		Title:       request.Title,
		Content:     request.Content,
		PublishDate: time.Now(),
		AuthorID:    userID,
	}

	if categoryValue := r.FormValue("category_id"); categoryValue != "" {
		categoryID, err := strconv.ParseUint(categoryValue, 10, 64)
		if err != nil {
			http.Error(w, "Invalid category ID", http.StatusBadRequest)
			return
		}
		var category models.Category
		if err := h.db.First(&category, categoryID).Error; err != nil {
			http.Error(w, "Category not found", http.StatusNotFound)
			return
		}
		post.CategoryID = &category.ID
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		imagePath, err := utils.SaveImage(file, header)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error saving image: %v", err), http.StatusBadRequest)
			return
		}
		post.ImagePath = imagePath
	}

	tx := h.db.Begin()

	if err := tx.Create(&post).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating post", http.StatusInternalServerError)
		return
	}

	if tagsValue := r.FormValue("tags"); tagsValue != "" {
		tags, err := firstOrCreateTags(tx, tagsValue)
		if err != nil {
			tx.Rollback()
			http.Error(w, "Error saving tags", http.StatusInternalServerError)
			return
		}
		if err := tx.Model(&post).Association("Tags").Replace(tags); err != nil {
			tx.Rollback()
			http.Error(w, "Error saving tags", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error saving post", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Author").Preload("Category").Preload("Tags").First(&post, post.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(post)
}

// orderings whitelists the caller-supplied ordering field. Anything else
// falls back to newest-publish-date-first.
var orderings = map[string]string{
	"publish_date":  "publish_date ASC",
	"-publish_date": "publish_date DESC",
	"title":         "title ASC",
	"-title":        "title DESC",
	"likes":         "likes ASC",
	"-likes":        "likes DESC",
	"dislikes":      "dislikes ASC",
	"-dislikes":     "dislikes DESC",
}

const defaultOrdering = "publish_date DESC"

// GetPosts lists posts with optional title/tag substring search, ordering and
// pagination.
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 5

	query := h.db.Model(&models.Post{}).
		Preload("Author").Preload("Category").Preload("Tags")

	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		var tagPostIDs []uint
		h.db.Table("post_tags").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("LOWER(tags.name) LIKE ?", like).
			Pluck("post_tags.post_id", &tagPostIDs)
		query = query.Where("LOWER(posts.title) LIKE ? OR posts.id IN ?", like, tagPostIDs)
	}

	orderBy, ok := orderings[r.URL.Query().Get("ordering")]
	if !ok {
		orderBy = defaultOrdering
	}

	var total int64
	query.Count(&total)

	var posts []models.Post
	if err := query.Order(orderBy).Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"posts":       posts,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetPost retrieves a single post with its relations.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.Preload("Author").Preload("Category").Preload("Tags").First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(post)
}

// UpdatePost edits a post. PUT requires title and content, PATCH is partial.
// The original author is preserved; editing never transfers ownership.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.GetUserIDFromContext(r.Context()); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var updateData struct {
		Title      *string   `json:"title"`
		Content    *string   `json:"content"`
		CategoryID *uint     `json:"category_id"`
		Tags       *[]string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if r.Method == "PUT" && (updateData.Title == nil || updateData.Content == nil) {
		http.Error(w, "Title and content are required", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	if updateData.Title != nil {
		title := strings.TrimSpace(*updateData.Title)
		if title == "" {
			http.Error(w, "Title cannot be blank", http.StatusBadRequest)
			return
		}
		post.Title = title
	}
	if updateData.Content != nil {
		if *updateData.Content == "" {
			http.Error(w, "Content cannot be blank", http.StatusBadRequest)
			return
		}
		post.Content = *updateData.Content
	}
	if updateData.CategoryID != nil {
		var category models.Category
		if err := h.db.First(&category, *updateData.CategoryID).Error; err != nil {
			http.Error(w, "Category not found", http.StatusNotFound)
			return
		}
		post.CategoryID = &category.ID
	}

	tx := h.db.Begin()

	// The dislike policy applies to every save path, not only reactions.
	deleted, err := applyDislikePolicy(tx, &post)
	if err != nil {
		tx.Rollback()
		http.Error(w, "Error updating post", http.StatusInternalServerError)
		return
	}
	if deleted {
		tx.Commit()
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	if err := tx.Save(&post).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating post", http.StatusInternalServerError)
		return
	}

	if updateData.Tags != nil {
		tags, err := firstOrCreateTags(tx, strings.Join(*updateData.Tags, ","))
		if err != nil {
			tx.Rollback()
			http.Error(w, "Error saving tags", http.StatusInternalServerError)
			return
		}
		if err := tx.Model(&post).Association("Tags").Replace(tags); err != nil {
			tx.Rollback()
			http.Error(w, "Error saving tags", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error updating post", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Author").Preload("Category").Preload("Tags").First(&post, post.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(post)
}

// DeletePost removes a post together with its comments and reactions.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.GetUserIDFromContext(r.Context()); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	tx := h.db.Begin()
	if err := deletePost(tx, &post); err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting post", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting post", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReactToPost records a like or dislike for the calling user. Clicking the
// same reaction again removes it (toggle-off); the opposite reaction flips it
// in place. Counters are recomputed and saved in the same transaction.
func (h *Handler) ReactToPost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var request struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if request.Action != "like" && request.Action != "dislike" {
		http.Error(w, "Invalid action", http.StatusBadRequest)
		return
	}
	liking := request.Action == "like"

	tx := h.db.Begin()

	var post models.Post
	if err := tx.First(&post, postID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	var reaction models.PostLike
	err = tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&reaction).Error
	switch {
	case err == nil && reaction.IsLike == liking:
		// Same reaction clicked again: toggle off.
		if err := tx.Unscoped().Delete(&reaction).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error removing reaction", http.StatusInternalServerError)
			return
		}
	case err == nil:
		reaction.IsLike = liking
		if err := tx.Save(&reaction).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating reaction", http.StatusInternalServerError)
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		reaction = models.PostLike{UserID: userID, PostID: uint(postID), IsLike: liking}
		if err := tx.Create(&reaction).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error saving reaction", http.StatusInternalServerError)
			return
		}
	default:
		tx.Rollback()
		http.Error(w, "Error retrieving reaction", http.StatusInternalServerError)
		return
	}

	var likes, dislikes int64
	if err := tx.Model(&models.PostLike{}).Where("post_id = ? AND is_like = ?", postID, true).Count(&likes).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error counting reactions", http.StatusInternalServerError)
		return
	}
	if err := tx.Model(&models.PostLike{}).Where("post_id = ? AND is_like = ?", postID, false).Count(&dislikes).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error counting reactions", http.StatusInternalServerError)
		return
	}

	post.Likes = int(likes)
	post.Dislikes = int(dislikes)

	deleted, err := applyDislikePolicy(tx, &post)
	if err != nil {
		tx.Rollback()
		http.Error(w, "Error applying dislike policy", http.StatusInternalServerError)
		return
	}
	if deleted {
		if err := tx.Commit().Error; err != nil {
			http.Error(w, "Error saving reaction", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "Post removed due to excessive dislikes",
		})
		return
	}

	if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
		Updates(map[string]interface{}{"likes": post.Likes, "dislikes": post.Dislikes}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating reaction counts", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error saving reaction", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Author").Preload("Category").Preload("Tags").First(&post, post.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(post)
}

// applyDislikePolicy deletes the post, with its comments and reactions, once
// dislikes exceed 10. Returns whether the post was deleted.
func applyDislikePolicy(tx *gorm.DB, post *models.Post) (bool, error) {
	if post.Dislikes <= 10 {
		return false, nil
	}
	if err := deletePost(tx, post); err != nil {
		return false, err
	}
	return true, nil
}

func deletePost(tx *gorm.DB, post *models.Post) error {
	if err := tx.Unscoped().Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("post_id = ?", post.ID).Delete(&models.PostLike{}).Error; err != nil {
		return err
	}
	if err := tx.Model(post).Association("Tags").Clear(); err != nil {
		return err
	}
	if err := tx.Unscoped().Delete(post).Error; err != nil {
		return err
	}
	if post.ImagePath != "" {
		utils.DeleteImage(post.ImagePath)
	}
	return nil
}

func firstOrCreateTags(tx *gorm.DB, tagsValue string) ([]models.Tag, error) {
	var tags []models.Tag
	for _, name := range strings.Split(tagsValue, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tag models.Tag
		if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

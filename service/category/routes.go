package category

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

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
	router.HandleFunc("/categories", h.GetCategories).Methods("GET")
	router.HandleFunc("/categories", utils.AdminMiddleware(h.db, h.CreateCategory)).Methods("POST")
	router.HandleFunc("/categories/{id:[0-9]+}", utils.AdminMiddleware(h.db, h.UpdateCategory)).Methods("PUT")
	router.HandleFunc("/categories/{id:[0-9]+}", utils.AdminMiddleware(h.db, h.DeleteCategory)).Methods("DELETE")
	router.HandleFunc("/posts/categories/{id:[0-9]+}", h.GetPostsByCategory).Methods("GET")
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	var categories []models.Category
	if err := h.db.Order("created_at DESC").Find(&categories).Error; err != nil {
		http.Error(w, "Error retrieving categories", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categories)
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var request categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request.Name = strings.TrimSpace(request.Name)
	if err := validate.Struct(request); err != nil {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	category := models.Category{Name: request.Name, Description: request.Description}
	if err := h.db.Create(&category).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "Category name already in use", http.StatusConflict)
			return
		}
		http.Error(w, "Error creating category", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(category)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	var updateData struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Category not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error retrieving category", http.StatusInternalServerError)
		return
	}

	if updateData.Name != nil {
		name := strings.TrimSpace(*updateData.Name)
		if name == "" {
			http.Error(w, "Name cannot be blank", http.StatusBadRequest)
			return
		}
		category.Name = name
	}
	if updateData.Description != nil {
		category.Description = *updateData.Description
	}

	if err := h.db.Save(&category).Error; err != nil {
		http.Error(w, "Error updating category", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(category)
}

// DeleteCategory removes a category. Its posts survive with a NULL category;
// its subscriptions are removed.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	tx := h.db.Begin()

	if err := tx.Model(&models.Post{}).Where("category_id = ?", category.ID).
		Update("category_id", nil).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error detaching posts", http.StatusInternalServerError)
		return
	}
	if err := tx.Unscoped().Where("category_id = ?", category.ID).
		Delete(&models.Subscription{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error removing subscriptions", http.StatusInternalServerError)
		return
	}
	if err := tx.Unscoped().Delete(&category).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting category", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting category", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPostsByCategory lists a category's posts newest-first with pagination.
func (h *Handler) GetPostsByCategory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	categoryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 5

	query := h.db.Model(&models.Post{}).Where("category_id = ?", category.ID).
		Preload("Author").Preload("Tags")

	var total int64
	query.Count(&total)

	var posts []models.Post
	if err := query.Order("publish_date DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
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

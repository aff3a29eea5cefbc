package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/muhammadmasoud/blogApp/cmd/models"
	"github.com/muhammadmasoud/blogApp/cmd/utils"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB

	// sendMail is swapped out in tests; delivery failures never fail a request.
	sendMail func(email, username, category string) error
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, sendMail: sendSubscriptionEmail}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/user/subscribe", utils.AuthMiddleware(h.Subscribe)).Methods("POST")
	router.HandleFunc("/user/unsubscribe", utils.AuthMiddleware(h.Unsubscribe)).Methods("POST")
	router.HandleFunc("/user/subscriptions", utils.AuthMiddleware(h.GetSubscriptions)).Methods("GET")
	router.HandleFunc("/posts/categories", h.GetCategoriesWithStatus).Methods("GET")
}

// Subscribe opts the caller into a category. Repeat calls are idempotent and
// reported as "already subscribed"; the confirmation email goes out only on
// first-time creation, fire and forget.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var request struct {
		CategoryID uint `json:"category_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if request.CategoryID == 0 {
		http.Error(w, "Category ID is required", http.StatusBadRequest)
		return
	}

	var category models.Category
	if err := h.db.First(&category, request.CategoryID).Error; err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	var existing models.Subscription
	err = h.db.Where("user_id = ? AND category_id = ?", userID, category.ID).First(&existing).Error
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": fmt.Sprintf("Already subscribed to category: %s", category.Name),
		})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Error retrieving subscription", http.StatusInternalServerError)
		return
	}

	subscription := models.Subscription{UserID: userID, CategoryID: category.ID}
	if err := h.db.Create(&subscription).Error; err != nil {
		http.Error(w, "Error creating subscription", http.StatusInternalServerError)
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err == nil {
		go func() {
			if err := h.sendMail(user.Email, user.Username, category.Name); err != nil {
				log.Printf("Error sending subscription email to %s: %v", user.Email, err)
			}
		}()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"message": fmt.Sprintf("Subscribed to category: %s", category.Name),
	})
}

// Unsubscribe removes the caller's subscription. Removing a subscription that
// never existed is not an error.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var request struct {
		CategoryID uint `json:"category_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if request.CategoryID == 0 {
		http.Error(w, "Category ID is required", http.StatusBadRequest)
		return
	}

	var category models.Category
	if err := h.db.First(&category, request.CategoryID).Error; err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	if err := h.db.Unscoped().
		Where("user_id = ? AND category_id = ?", userID, category.ID).
		Delete(&models.Subscription{}).Error; err != nil {
		http.Error(w, "Error removing subscription", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": fmt.Sprintf("Unsubscribed from category: %s", category.Name),
	})
}

// GetSubscriptions lists the categories the caller is subscribed to.
func (h *Handler) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var categories []models.Category
	err = h.db.
		Joins("JOIN subscriptions ON subscriptions.category_id = categories.id").
		Where("subscriptions.user_id = ? AND subscriptions.deleted_at IS NULL", userID).
		Find(&categories).Error
	if err != nil {
		http.Error(w, "Error retrieving subscriptions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categories)
}

// GetCategoriesWithStatus lists every category with a per-caller subscribed
// flag. Anonymous callers get subscribed=false everywhere.
func (h *Handler) GetCategoriesWithStatus(w http.ResponseWriter, r *http.Request) {
	subscribed := map[uint]bool{}
	if userID, ok := utils.UserIDFromRequest(r); ok {
		var subscriptions []models.Subscription
		if err := h.db.Where("user_id = ?", userID).Find(&subscriptions).Error; err != nil {
			http.Error(w, "Error retrieving subscriptions", http.StatusInternalServerError)
			return
		}
		for _, s := range subscriptions {
			subscribed[s.CategoryID] = true
		}
	}

	var categories []models.Category
	if err := h.db.Order("created_at DESC").Find(&categories).Error; err != nil {
		http.Error(w, "Error retrieving categories", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(categories))
	for _, category := range categories {
		response = append(response, map[string]interface{}{
			"id":         category.ID,
			"name":       category.Name,
			"subscribed": subscribed[category.ID],
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

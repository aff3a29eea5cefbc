package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/muhammadmasoud/blogApp/cmd/models"
	"github.com/muhammadmasoud/blogApp/cmd/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenLifetime  = 15 * time.Minute
	refreshTokenLifetime = 30 * 24 * time.Hour
)

var validate = validator.New()

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/signup", h.HandleSignup).Methods("POST")
	router.HandleFunc("/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/token/refresh", h.HandleRefreshToken).Methods("POST")

	// Admin routes
	router.HandleFunc("/users", utils.AdminMiddleware(h.db, h.GetUsers)).Methods("GET")
	router.HandleFunc("/users/{id:[0-9]+}/block", utils.AdminMiddleware(h.db, h.BlockUnblockUser)).Methods("POST")
	router.HandleFunc("/users/{id:[0-9]+}/promote", utils.AdminMiddleware(h.db, h.PromoteDemoteUser)).Methods("POST")
}

type signupRequest struct {
	Username        string `json:"username" validate:"required,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var request signupRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(request); err != nil {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}
	if request.Password != request.PasswordConfirm {
		http.Error(w, "Passwords do not match", http.StatusBadRequest)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		Username:     request.Username,
		Email:        request.Email,
		PasswordHash: string(passwordHash),
	}

	if err := h.db.Create(&user).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "Username or email is already in use", http.StatusBadRequest)
			return
		}
		http.Error(w, "Error registering user", http.StatusInternalServerError)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		http.Error(w, "Error generating tokens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user": map[string]interface{}{
			"username": user.Username,
			"email":    user.Email,
		},
		"access":  accessToken,
		"refresh": refreshToken,
		"message": "User created successfully.",
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.Where("username = ?", request.Username).First(&user).Error; err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user.IsBlocked {
		http.Error(w, "This user is blocked. Contact admin.", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		http.Error(w, "Error generating tokens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access":   accessToken,
		"refresh":  refreshToken,
		"user_id":  user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
	})
}

func (h *Handler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var request struct {
		RefreshToken string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.Where("refresh_token = ?", request.RefreshToken).First(&user).Error; err != nil {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	if user.RefreshTokenExpiredAt.Before(time.Now()) {
		http.Error(w, "Refresh token expired", http.StatusUnauthorized)
		return
	}

	// Rotate: a used refresh token is replaced, not reissued.
	accessToken, refreshToken, err := h.issueTokens(&user)
	if err != nil {
		http.Error(w, "Error generating tokens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access":  accessToken,
		"refresh": refreshToken,
	})
}

// GetUsers lists all users for the admin dashboard.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.db.Find(&users).Error; err != nil {
		http.Error(w, "Error retrieving users", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(users))
	for _, user := range users {
		response = append(response, map[string]interface{}{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"is_admin":   user.IsAdmin,
			"is_blocked": user.IsBlocked,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) BlockUnblockUser(w http.ResponseWriter, r *http.Request) {
	user, action, ok := h.userAction(w, r)
	if !ok {
		return
	}

	switch action {
	case "block":
		user.IsBlocked = true
	case "unblock":
		user.IsBlocked = false
	default:
		http.Error(w, "Invalid action", http.StatusBadRequest)
		return
	}

	if err := h.db.Save(user).Error; err != nil {
		http.Error(w, "Error updating user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": fmt.Sprintf("User %s %sed.", user.Username, action),
	})
}

func (h *Handler) PromoteDemoteUser(w http.ResponseWriter, r *http.Request) {
	user, action, ok := h.userAction(w, r)
	if !ok {
		return
	}

	var message string
	switch action {
	case "promote":
		user.IsAdmin = true
		message = fmt.Sprintf("User %s promoted to admin.", user.Username)
	case "demote":
		user.IsAdmin = false
		message = fmt.Sprintf("User %s demoted from admin.", user.Username)
	default:
		http.Error(w, "Invalid action", http.StatusBadRequest)
		return
	}

	if err := h.db.Save(user).Error; err != nil {
		http.Error(w, "Error updating user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// userAction loads the target user and the requested action for the admin
// block/promote endpoints.
func (h *Handler) userAction(w http.ResponseWriter, r *http.Request) (*models.User, string, bool) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return nil, "", false
	}

	var request struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, "", false
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return nil, "", false
		}
		http.Error(w, "Error retrieving user", http.StatusInternalServerError)
		return nil, "", false
	}

	return &user, request.Action, true
}

func (h *Handler) issueTokens(user *models.User) (string, string, error) {
	accessToken, err := utils.GenerateJWT(user.ID, accessTokenLifetime)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := generateRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}

	err = h.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"refresh_token":            refreshToken,
		"refresh_token_expired_at": time.Now().Add(refreshTokenLifetime),
	}).Error
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func generateRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	// HMAC ties the token to the issuing user.
	mac := hmac.New(sha256.New, []byte(os.Getenv("SECRET_KEY")))
	mac.Write([]byte(fmt.Sprintf("%d", userID)))
	mac.Write(b)

	signature := mac.Sum(nil)
	return fmt.Sprintf("%d_%x_%x", userID, b, signature), nil
}

package moderation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/muhammadmasoud/blogApp/cmd/models"
	"github.com/muhammadmasoud/blogApp/cmd/utils"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	filter *Filter
}

func NewHandler(db *gorm.DB, filter *Filter) *Handler {
	return &Handler{db: db, filter: filter}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/forbidden-words", utils.AdminMiddleware(h.db, h.ListWords)).Methods("GET")
	router.HandleFunc("/admin/forbidden-words", utils.AdminMiddleware(h.db, h.AddWord)).Methods("POST")
	router.HandleFunc("/admin/forbidden-words/{id}", utils.AdminMiddleware(h.db, h.DeleteWord)).Methods("DELETE")
}

func (h *Handler) ListWords(w http.ResponseWriter, r *http.Request) {
	var words []models.ForbiddenWord
	if err := h.db.Order("word ASC").Find(&words).Error; err != nil {
		http.Error(w, "Error retrieving forbidden words", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(words)
}

func (h *Handler) AddWord(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Word string `json:"word"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request.Word = strings.TrimSpace(request.Word)
	if request.Word == "" {
		http.Error(w, "Word is required", http.StatusBadRequest)
		return
	}

	word := models.ForbiddenWord{Word: request.Word}
	if err := h.db.Create(&word).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "Word already forbidden", http.StatusConflict)
			return
		}
		http.Error(w, "Error saving forbidden word", http.StatusInternalServerError)
		return
	}

	if err := h.filter.Reload(); err != nil {
		http.Error(w, "Error reloading word list", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(word)
}

func (h *Handler) DeleteWord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wordID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid word ID", http.StatusBadRequest)
		return
	}

	var word models.ForbiddenWord
	if err := h.db.First(&word, wordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Forbidden word not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error retrieving forbidden word", http.StatusInternalServerError)
		return
	}

	if err := h.db.Unscoped().Delete(&word).Error; err != nil {
		http.Error(w, "Error deleting forbidden word", http.StatusInternalServerError)
		return
	}

	if err := h.filter.Reload(); err != nil {
		http.Error(w, "Error reloading word list", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package moderation

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/muhammadmasoud/blogApp/cmd/models"
	"github.com/muhammadmasoud/blogApp/cmd/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*gorm.DB, *Filter, *mux.Router) {
	t.Setenv("SECRET_KEY", "test-secret")

	db := newTestDB(t)
	filter, err := NewFilter(db)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewHandler(db, filter).RegisterRoutes(router)
	return db, filter, router
}

func authToken(t *testing.T, db *gorm.DB, username string, admin bool) string {
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsAdmin:      admin,
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateJWT(user.ID, time.Hour)
	require.NoError(t, err)
	return token
}

func TestForbiddenWordRoutes(t *testing.T) {
	db, filter, router := newTestServer(t)
	adminToken := authToken(t, db, "admin", true)
	userToken := authToken(t, db, "reader", false)

	t.Run("non-admin rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/admin/forbidden-words", strings.NewReader(`{"word":"XXX"}`))
		req.Header.Set("Authorization", "Bearer "+userToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("add word reloads filter", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/admin/forbidden-words", strings.NewReader(`{"word":"XXX"}`))
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		assert.Equal(t, "*** marks the spot", filter.Mask("XXX marks the spot"))
	})

	t.Run("duplicate word conflicts", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/admin/forbidden-words", strings.NewReader(`{"word":"XXX"}`))
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete word reloads filter", func(t *testing.T) {
		var word models.ForbiddenWord
		require.NoError(t, db.Where("word = ?", "XXX").First(&word).Error)

		req := httptest.NewRequest("DELETE", "/admin/forbidden-words/"+strconv.FormatUint(uint64(word.ID), 10), nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		assert.Equal(t, "XXX marks the spot", filter.Mask("XXX marks the spot"))
	})
}

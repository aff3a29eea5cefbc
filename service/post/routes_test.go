package post

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/muhammadmasoud/blogApp/cmd/models"
	"github.com/muhammadmasoud/blogApp/cmd/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*gorm.DB, *mux.Router) {
	t.Setenv("SECRET_KEY", "test-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.Subscription{},
		&models.ForbiddenWord{},
	))

	router := mux.NewRouter()
	NewHandler(db).RegisterRoutes(router)
	return db, router
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	token, err := utils.GenerateJWT(user.ID, time.Hour)
	require.NoError(t, err)
	return token
}

func createPost(t *testing.T, db *gorm.DB, author models.User, title string) models.Post {
	post := models.Post{
		Title:       title,
		Content:     "content of " + title,
		PublishDate: time.Now(),
		AuthorID:    author.ID,
	}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func react(t *testing.T, router *mux.Router, token string, postID uint, action string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"action":%q}`, action)
	req := httptest.NewRequest("POST", fmt.Sprintf("/posts/%d/react", postID), strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func postCounters(t *testing.T, db *gorm.DB, postID uint) (int, int) {
	var post models.Post
	require.NoError(t, db.First(&post, postID).Error)
	return post.Likes, post.Dislikes
}

func TestReactToPost(t *testing.T) {
	db, router := setupTest(t)
	author := createUser(t, db, "author")
	reader := createUser(t, db, "reader")
	token := tokenFor(t, reader)
	post := createPost(t, db, author, "First post")

	t.Run("requires auth", func(t *testing.T) {
		req := httptest.NewRequest("POST", fmt.Sprintf("/posts/%d/react", post.ID), strings.NewReader(`{"action":"like"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid action", func(t *testing.T) {
		rec := react(t, router, token, post.ID, "love")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown post", func(t *testing.T) {
		rec := react(t, router, token, 9999, "like")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("like creates reaction and updates counters", func(t *testing.T) {
		rec := react(t, router, token, post.ID, "like")
		assert.Equal(t, http.StatusOK, rec.Code)

		likes, dislikes := postCounters(t, db, post.ID)
		assert.Equal(t, 1, likes)
		assert.Equal(t, 0, dislikes)
	})

	t.Run("opposite reaction flips in place", func(t *testing.T) {
		rec := react(t, router, token, post.ID, "dislike")
		assert.Equal(t, http.StatusOK, rec.Code)

		likes, dislikes := postCounters(t, db, post.ID)
		assert.Equal(t, 0, likes)
		assert.Equal(t, 1, dislikes)

		var count int64
		db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("same reaction toggles off", func(t *testing.T) {
		rec := react(t, router, token, post.ID, "dislike")
		assert.Equal(t, http.StatusOK, rec.Code)

		likes, dislikes := postCounters(t, db, post.ID)
		assert.Equal(t, 0, likes)
		assert.Equal(t, 0, dislikes)

		var count int64
		db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("counters match reaction rows after many users", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			u := createUser(t, db, fmt.Sprintf("liker%d", i))
			rec := react(t, router, tokenFor(t, u), post.ID, "like")
			require.Equal(t, http.StatusOK, rec.Code)
		}
		for i := 0; i < 3; i++ {
			u := createUser(t, db, fmt.Sprintf("disliker%d", i))
			rec := react(t, router, tokenFor(t, u), post.ID, "dislike")
			require.Equal(t, http.StatusOK, rec.Code)
		}

		likes, dislikes := postCounters(t, db, post.ID)
		assert.Equal(t, 4, likes)
		assert.Equal(t, 3, dislikes)
	})
}

func TestDislikeThresholdDeletesPost(t *testing.T) {
	db, router := setupTest(t)
	author := createUser(t, db, "author")
	post := createPost(t, db, author, "Divisive post")

	// Attach a comment so the cascade is observable.
	comment := models.Comment{Content: "hot take", UserID: author.ID, PostID: post.ID}
	require.NoError(t, db.Create(&comment).Error)

	for i := 0; i < 11; i++ {
		u := createUser(t, db, fmt.Sprintf("hater%d", i))
		rec := react(t, router, tokenFor(t, u), post.ID, "dislike")
		require.Equal(t, http.StatusOK, rec.Code, "dislike %d", i)

		if i < 10 {
			_, dislikes := postCounters(t, db, post.ID)
			require.Equal(t, i+1, dislikes)
		}
	}

	req := httptest.NewRequest("GET", fmt.Sprintf("/posts/%d", post.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var comments, reactions int64
	db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
	db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&reactions)
	assert.Equal(t, int64(0), comments)
	assert.Equal(t, int64(0), reactions)
}

func TestCreatePost(t *testing.T) {
	db, router := setupTest(t)
	author := createUser(t, db, "writer")
	token := tokenFor(t, author)

	category := models.Category{Name: "Tech"}
	require.NoError(t, db.Create(&category).Error)

	newRequest := func(fields map[string]string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for key, value := range fields {
			mw.WriteField(key, value)
		}
		mw.Close()
		req := httptest.NewRequest("POST", "/posts", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	t.Run("creates post with tags and category", func(t *testing.T) {
		req := newRequest(map[string]string{
			"title":       "Go generics",
			"content":     "A look at type parameters",
			"category_id": fmt.Sprint(category.ID),
			"tags":        "go, generics",
		})
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var created models.Post
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, author.ID, created.AuthorID)
		require.NotNil(t, created.CategoryID)
		assert.Equal(t, category.ID, *created.CategoryID)
		assert.Len(t, created.Tags, 2)
	})

	t.Run("missing title rejected", func(t *testing.T) {
		req := newRequest(map[string]string{"content": "no title"})
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated rejected", func(t *testing.T) {
		req := newRequest(map[string]string{"title": "x", "content": "y"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUpdatePostPreservesAuthor(t *testing.T) {
	db, router := setupTest(t)
	author := createUser(t, db, "original")
	editor := createUser(t, db, "editor")
	post := createPost(t, db, author, "Before edit")

	body := `{"title":"After edit"}`
	req := httptest.NewRequest("PATCH", fmt.Sprintf("/posts/%d", post.ID), strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, editor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Post
	require.NoError(t, db.First(&updated, post.ID).Error)
	assert.Equal(t, "After edit", updated.Title)
	assert.Equal(t, author.ID, updated.AuthorID, "editing must not reassign authorship")
}

func TestUpdatePostValidation(t *testing.T) {
	db, router := setupTest(t)
	author := createUser(t, db, "author")
	token := tokenFor(t, author)
	post := createPost(t, db, author, "A post")

	t.Run("PUT requires full payload", func(t *testing.T) {
		req := httptest.NewRequest("PUT", fmt.Sprintf("/posts/%d", post.ID), strings.NewReader(`{"title":"only title"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("PATCH accepts partial payload", func(t *testing.T) {
		req := httptest.NewRequest("PATCH", fmt.Sprintf("/posts/%d", post.ID), strings.NewReader(`{"content":"new body"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown post", func(t *testing.T) {
		req := httptest.NewRequest("PATCH", "/posts/9999", strings.NewReader(`{"content":"x"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeletePost(t *testing.T) {
	db, router := setupTest(t)
	author := createUser(t, db, "author")
	post := createPost(t, db, author, "Doomed post")

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/posts/%d", post.ID), nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, author))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest("GET", fmt.Sprintf("/posts/%d", post.ID), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPostsSearchAndOrdering(t *testing.T) {
	db, router := setupTest(t)
	author := createUser(t, db, "author")

	older := models.Post{
		Title:       "Cooking with cast iron",
		Content:     "skillets",
		PublishDate: time.Now().Add(-48 * time.Hour),
		AuthorID:    author.ID,
	}
	require.NoError(t, db.Create(&older).Error)

	newer := models.Post{
		Title:       "Alpha release notes",
		Content:     "changelog",
		PublishDate: time.Now(),
		AuthorID:    author.ID,
	}
	require.NoError(t, db.Create(&newer).Error)

	tag := models.Tag{Name: "golang"}
	require.NoError(t, db.Create(&tag).Error)
	require.NoError(t, db.Model(&newer).Association("Tags").Append(&tag))

	list := func(query string) []models.Post {
		req := httptest.NewRequest("GET", "/posts"+query, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Posts []models.Post `json:"posts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		return response.Posts
	}

	t.Run("default ordering newest first", func(t *testing.T) {
		posts := list("")
		require.Len(t, posts, 2)
		assert.Equal(t, newer.ID, posts[0].ID)
	})

	t.Run("invalid ordering falls back to default", func(t *testing.T) {
		posts := list("?ordering=bogus;drop")
		require.Len(t, posts, 2)
		assert.Equal(t, newer.ID, posts[0].ID)
	})

	t.Run("explicit ordering by title", func(t *testing.T) {
		posts := list("?ordering=title")
		require.Len(t, posts, 2)
		assert.Equal(t, newer.ID, posts[0].ID) // "Alpha..." sorts before "Cooking..."
	})

	t.Run("search by title substring", func(t *testing.T) {
		posts := list("?search=cast+iron")
		require.Len(t, posts, 1)
		assert.Equal(t, older.ID, posts[0].ID)
	})

	t.Run("search by tag name", func(t *testing.T) {
		posts := list("?search=GOLANG")
		require.Len(t, posts, 1)
		assert.Equal(t, newer.ID, posts[0].ID)
	})

	t.Run("search without matches", func(t *testing.T) {
		posts := list("?search=nonexistent")
		assert.Len(t, posts, 0)
	})
}

package api

import (
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/muhammadmasoud/blogApp/service/category"
	"github.com/muhammadmasoud/blogApp/service/comment"
	"github.com/muhammadmasoud/blogApp/service/moderation"
	"github.com/muhammadmasoud/blogApp/service/post"
	"github.com/muhammadmasoud/blogApp/service/subscription"
	"github.com/muhammadmasoud/blogApp/service/user"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	filter, err := moderation.NewFilter(s.db)
	if err != nil {
		return err
	}

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	postHandler := post.NewHandler(s.db)
	postHandler.RegisterRoutes(subrouter)

	commentHandler := comment.NewHandler(s.db, filter)
	commentHandler.RegisterRoutes(subrouter)

	categoryHandler := category.NewHandler(s.db)
	categoryHandler.RegisterRoutes(subrouter)

	subscriptionHandler := subscription.NewHandler(s.db)
	subscriptionHandler.RegisterRoutes(subrouter)

	moderationHandler := moderation.NewHandler(s.db, filter)
	moderationHandler.RegisterRoutes(subrouter)

	fileServer := http.FileServer(http.Dir("uploads/posts"))
	router.PathPrefix("/images/").Handler(http.StripPrefix("/images/", fileServer))

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}

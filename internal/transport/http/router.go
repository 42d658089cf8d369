package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"warbler/internal/handler"
	"warbler/internal/httputil"
	authmw "warbler/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	MessageHandler *handler.MessageHandler
	FollowHandler  *handler.FollowHandler
	FeedHandler    *handler.FeedHandler
	Auth           *authmw.Auth
}

// NewRouter creates and configures a Chi router with all route groups.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public auth routes
	r.Post("/signup", cfg.AuthHandler.Signup)
	r.Post("/login", cfg.AuthHandler.Login)
	r.Get("/logout", cfg.AuthHandler.Logout)

	// Public routes with optional authentication: anonymous users can
	// browse, authenticated viewers get follow/like status filled in
	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.OptionalAuth)

		r.Get("/users", cfg.UserHandler.List)
		r.Get("/users/{userID}", cfg.UserHandler.GetProfile)
		r.Get("/users/{userID}/messages", cfg.UserHandler.GetUserMessages)
		r.Get("/messages/{messageID}", cfg.MessageHandler.GetByID)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.RequireAuth)

		r.Get("/users/{userID}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{userID}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{userID}/likes", cfg.UserHandler.GetLikes)

		r.Post("/users/follow/{userID}", cfg.FollowHandler.Follow)
		r.Post("/users/stop-following/{userID}", cfg.FollowHandler.Unfollow)
		r.Post("/users/add_like/{messageID}", cfg.MessageHandler.ToggleLike)
		r.Post("/users/profile", cfg.UserHandler.UpdateProfile)
		r.Post("/users/delete", cfg.UserHandler.DeleteAccount)

		r.Post("/messages/new", cfg.MessageHandler.Create)
		r.Post("/messages/{messageID}/delete", cfg.MessageHandler.Delete)

		r.Get("/feed", cfg.FeedHandler.GetFeed)
	})

	return r
}

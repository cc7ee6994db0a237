package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"shotzi/internal/handler"
	"shotzi/internal/httputil"
	authmw "shotzi/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	NotificationHandler *handler.NotificationHandler
	MessageHandler      *handler.MessageHandler
	AdminHandler        *handler.AdminHandler
	MediaHandler        *handler.MediaHandler
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
	})

	// Public read endpoints with optional authentication
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/users/{id}", cfg.UserHandler.GetProfile)
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/users/{id}/followers", cfg.UserHandler.Followers)
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/users/{id}/following", cfg.UserHandler.Following)
	r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret)).Get("/posts/{id}", cfg.PostHandler.GetByID)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/presence/heartbeat", cfg.AuthHandler.Heartbeat)

		r.Get("/feed", cfg.PostHandler.Feed)

		r.Post("/posts", cfg.PostHandler.Submit)
		r.Get("/posts/pending", cfg.AdminHandler.MySubmissions)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)
		r.Post("/posts/{id}/like", cfg.PostHandler.Like)
		r.Delete("/posts/{id}/like", cfg.PostHandler.Unlike)
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)

		r.Delete("/comments/{id}", cfg.CommentHandler.Delete)
		r.Post("/comments/{id}/like", cfg.CommentHandler.Like)
		r.Delete("/comments/{id}/like", cfg.CommentHandler.Unlike)

		r.Post("/users/{id}/follow", cfg.UserHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.UserHandler.Unfollow)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.GetUnread)
			r.Post("/{id}/read", cfg.NotificationHandler.MarkRead)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", cfg.MessageHandler.Conversations)
			r.Get("/{id}", cfg.MessageHandler.Thread)
			r.Post("/{id}", cfg.MessageHandler.Send)
			r.Delete("/direct/{id}", cfg.MessageHandler.DeleteDirect)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/", cfg.MessageHandler.Chat)
			r.Post("/", cfg.MessageHandler.SendChat)
			r.Delete("/{id}", cfg.MessageHandler.DeleteChat)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/pending", cfg.AdminHandler.Queue)
			r.Post("/pending/{id}/approve", cfg.AdminHandler.Approve)
			r.Post("/pending/{id}/reject", cfg.AdminHandler.Reject)
		})

		// Media uploads
		r.Post("/media/shots", cfg.MediaHandler.UploadShot)
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(apiHandler *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(corsOptions(allowedOrigins)))

	r.NotFound(apiHandler.NotFoundPage)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes
	r.Get("/login", apiHandler.LoginPage)
	r.Post("/login", apiHandler.LoginHandler)
	r.Get("/signup", apiHandler.SignupPage)
	r.Post("/signup", apiHandler.SignupHandler)
	r.Get("/logout", apiHandler.LogoutHandler)

	// Session-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(apiHandler.RequireUser)

		r.Get("/", redirectTo("/dashboard"))
		r.Get("/index", redirectTo("/dashboard"))
		r.Get("/dashboard", apiHandler.DashboardHandler)

		r.Get("/conversation/{id}", apiHandler.GetConversationHandler)
		r.Post("/conversation/{id}", apiHandler.PostMessageHandler)
		r.Post("/feedback/{id}", apiHandler.FeedbackHandler)
		r.Post("/add_conversation", apiHandler.AddConversationHandler)
		r.Get("/clear_conversation/{id}", apiHandler.ClearConversationHandler)
		r.Get("/save_conversation/{id}", apiHandler.SaveConversationHandler)

		r.Post("/user/update", apiHandler.UpdateUserHandler)
	})

	return r
}

// corsOptions allows credentials only when no bare "*" origin is configured. Browsers refuse
// Access-Control-Allow-Origin: * on a credentialed response.
func corsOptions(allowedOrigins []string) cors.Options {
	credentials := len(allowedOrigins) > 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			credentials = false
		}
	}
	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

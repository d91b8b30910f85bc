package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/account-service/internal/authz"
	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/health"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/profile"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/register"
	healthhandler "github.com/magabrotheeeer/account-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/mail/testwelcome"
	postcreate "github.com/magabrotheeeer/account-service/internal/http/handlers/posts/create"
	postlist "github.com/magabrotheeeer/account-service/internal/http/handlers/posts/list"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/posts/mine"
	postread "github.com/magabrotheeeer/account-service/internal/http/handlers/posts/read"
	postremove "github.com/magabrotheeeer/account-service/internal/http/handlers/posts/remove"
	postupdate "github.com/magabrotheeeer/account-service/internal/http/handlers/posts/update"
	usercreate "github.com/magabrotheeeer/account-service/internal/http/handlers/users/create"
	userlist "github.com/magabrotheeeer/account-service/internal/http/handlers/users/list"
	userread "github.com/magabrotheeeer/account-service/internal/http/handlers/users/read"
	userremove "github.com/magabrotheeeer/account-service/internal/http/handlers/users/remove"
	userupdate "github.com/magabrotheeeer/account-service/internal/http/handlers/users/update"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/queue"
	authservice "github.com/magabrotheeeer/account-service/internal/services/auth"
	postservice "github.com/magabrotheeeer/account-service/internal/services/posts"
	userservice "github.com/magabrotheeeer/account-service/internal/services/users"
)

// Deps зависимости маршрутов.
type Deps struct {
	Log           *slog.Logger
	Auth          *authservice.Service
	Users         *userservice.Service
	Posts         *postservice.Service
	Mail          *queue.MailQueue
	Tokens        *jwt.MakerImpl
	Revocations   *cache.Blacklist
	Health        *health.Checker
	Limiter       *middlewarectx.RateLimiter
	Metrics       *metrics.Metrics
	ExposeDetails bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	log := d.Log

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		response.ExposeDetails(d.ExposeDetails),
		d.Metrics.Middleware,
	)

	bearer := authz.Bearer(d.Tokens, d.Revocations)
	authenticated := middlewarectx.Guard(log, bearer)
	adminOnly := middlewarectx.Guard(log, bearer, authz.Roles(models.RoleAdmin))
	accountOwner := middlewarectx.Guard(log, bearer, authz.Ownership())
	postOwner := middlewarectx.Guard(log, bearer, authz.ResourceOwner(d.Posts.Owner))

	healthHandler := healthhandler.New(log, d.Health)
	r.Get("/health", healthHandler.ServeHTTP)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	// Ограничение частоты для API
	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", register.New(log, d.Auth).ServeHTTP)
			r.Post("/login", login.New(log, d.Auth).ServeHTTP)
			r.With(authenticated).Get("/profile", profile.New(log, d.Auth).ServeHTTP)
			r.With(authenticated).Post("/logout", logout.New(log, d.Auth).ServeHTTP)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(adminOnly).Post("/", usercreate.New(log, d.Users).ServeHTTP)
			r.With(adminOnly).Get("/", userlist.New(log, d.Users).ServeHTTP)
			r.With(accountOwner).Get("/{id}", userread.New(log, d.Users).ServeHTTP)
			r.With(accountOwner).Put("/{id}", userupdate.New(log, d.Users).ServeHTTP)
			r.With(accountOwner).Delete("/{id}", userremove.New(log, d.Users).ServeHTTP)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postlist.New(log, d.Posts).ServeHTTP)
			r.With(authenticated).Post("/", postcreate.New(log, d.Posts).ServeHTTP)
			r.With(authenticated).Get("/me", mine.New(log, d.Posts).ServeHTTP)
			r.Get("/{id}", postread.New(log, d.Posts).ServeHTTP)
			r.With(postOwner).Patch("/{id}", postupdate.New(log, d.Posts).ServeHTTP)
			r.With(postOwner).Delete("/{id}", postremove.New(log, d.Posts).ServeHTTP)
		})

		r.With(adminOnly).Get("/mail/test-welcome", testwelcome.New(log, d.Mail).ServeHTTP)
	})
}

// Package middlewarectx содержит HTTP middleware: проверки доступа
// и ограничение частоты запросов.
//
// Guard выполняет цепочку authz.Check для каждого запроса. При успехе
// вызывающий доступен обработчикам через PrincipalFromContext, при отказе
// возвращается JSON {status, message} со статусом решения.
package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/account-service/internal/authz"
	"github.com/magabrotheeeer/account-service/internal/http/response"
)

// Guard возвращает middleware, применяющий проверки по порядку.
// Параметр маршрута {id}, если он есть, передаётся проверкам как PathID.
func Guard(log *slog.Logger, checks ...authz.Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Guard"

			req := &authz.Request{
				Token:  authz.ExtractBearer(r.Header.Get("Authorization")),
				PathID: chi.URLParam(r, "id"),
			}
			if p, ok := PrincipalFromContext(r.Context()); ok {
				req.Principal = p
			}

			d := authz.Evaluate(r.Context(), req, checks...)
			if !d.Allowed {
				log.Warn("access denied",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("path", r.URL.Path),
					slog.Int("status", d.Status),
					slog.String("reason", d.Reason),
				)
				response.Fail(w, r, d.Status, d.Reason)
				return
			}

			ctx := r.Context()
			if req.Principal != nil {
				ctx = WithPrincipal(ctx, req.Principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Package authz содержит проверки доступа к маршрутам: валидность токена,
// роль вызывающего и владение ресурсом. Проверки независимы и выполняются
// по порядку, первый отказ прерывает цепочку.
package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Сообщения отказа.
const (
	ReasonUnauthorized = "Unauthorized"
	ReasonRevoked      = "Token has been revoked"
	ReasonInsufficient = "Insufficient permissions"
	ReasonNotOwner     = "You do not have permission to access this resource"
	ReasonNotFound     = "Resource not found"
	ReasonInternal     = "internal server error"
)

// Principal аутентифицированный вызывающий.
type Principal struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
	Token     string
}

// IsAdmin сообщает, является ли вызывающий администратором.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// Decision результат проверки.
type Decision struct {
	Allowed bool
	Status  int
	Reason  string
}

// Allow разрешающее решение.
func Allow() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

// Deny запрещающее решение с HTTP статусом и причиной.
func Deny(status int, reason string) Decision {
	return Decision{Status: status, Reason: reason}
}

// Request данные запроса, нужные проверкам. Bearer заполняет Principal.
type Request struct {
	Token     string
	PathID    string
	Principal *Principal
}

// Check отдельная проверка доступа.
type Check func(ctx context.Context, req *Request) Decision

// Evaluate выполняет проверки по порядку до первого отказа.
func Evaluate(ctx context.Context, req *Request, checks ...Check) Decision {
	for _, check := range checks {
		if d := check(ctx, req); !d.Allowed {
			return d
		}
	}
	return Allow()
}

// TokenVerifier проверяет подпись и срок действия токена.
type TokenVerifier interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// RevocationChecker отвечает, отозван ли токен.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// ExtractBearer достаёт токен из заголовка Authorization.
func ExtractBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Bearer требует неотозванный валидный токен. Ошибка хранилища отзыва
// трактуется как отказ.
func Bearer(verifier TokenVerifier, revocations RevocationChecker) Check {
	return func(ctx context.Context, req *Request) Decision {
		if req.Token == "" {
			return Deny(http.StatusUnauthorized, ReasonUnauthorized)
		}
		revoked, err := revocations.IsRevoked(ctx, req.Token)
		if err != nil {
			return Deny(http.StatusUnauthorized, ReasonUnauthorized)
		}
		if revoked {
			return Deny(http.StatusUnauthorized, ReasonRevoked)
		}
		claims, err := verifier.ParseToken(req.Token)
		if err != nil {
			return Deny(http.StatusUnauthorized, ReasonUnauthorized)
		}
		req.Principal = &Principal{
			Subject:   claims.Subject,
			Email:     claims.Email,
			Role:      claims.Role,
			ExpiresAt: claims.ExpiresAtTime(),
			Token:     req.Token,
		}
		return Allow()
	}
}

// Roles пропускает перечисленные роли. ADMIN проходит всегда.
// Пустой список ролей ничего не ограничивает.
func Roles(roles ...string) Check {
	return func(_ context.Context, req *Request) Decision {
		if req.Principal == nil {
			return Deny(http.StatusUnauthorized, ReasonUnauthorized)
		}
		if req.Principal.IsAdmin() || len(roles) == 0 {
			return Allow()
		}
		for _, role := range roles {
			if req.Principal.Role == role {
				return Allow()
			}
		}
		return Deny(http.StatusForbidden, ReasonInsufficient)
	}
}

// Ownership разрешает доступ к /{id}, только если id совпадает с sub вызывающего.
func Ownership() Check {
	return func(_ context.Context, req *Request) Decision {
		if req.Principal == nil {
			return Deny(http.StatusUnauthorized, ReasonUnauthorized)
		}
		if req.Principal.IsAdmin() || req.Principal.Subject == req.PathID {
			return Allow()
		}
		return Deny(http.StatusForbidden, ReasonNotOwner)
	}
}

// OwnerLookup возвращает владельца ресурса по его идентификатору.
type OwnerLookup func(ctx context.Context, id string) (string, error)

// ResourceOwner разрешает доступ владельцу ресурса {id} и администратору.
func ResourceOwner(lookup OwnerLookup) Check {
	return func(ctx context.Context, req *Request) Decision {
		if req.Principal == nil {
			return Deny(http.StatusUnauthorized, ReasonUnauthorized)
		}
		owner, err := lookup(ctx, req.PathID)
		if errors.Is(err, models.ErrNotFound) {
			return Deny(http.StatusNotFound, ReasonNotFound)
		}
		if err != nil {
			return Deny(http.StatusInternalServerError, ReasonInternal)
		}
		if req.Principal.IsAdmin() || owner == req.Principal.Subject {
			return Allow()
		}
		return Deny(http.StatusForbidden, ReasonNotOwner)
	}
}

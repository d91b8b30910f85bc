package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/account-service/internal/authz"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// PrincipalKey ключ аутентифицированного вызывающего в контексте.
const PrincipalKey Key = "principal"

// WithPrincipal кладёт вызывающего в контекст.
func WithPrincipal(ctx context.Context, p *authz.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext возвращает вызывающего, установленного Guard.
func PrincipalFromContext(ctx context.Context) (*authz.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*authz.Principal)
	return p, ok && p != nil
}

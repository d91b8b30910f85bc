package authz

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/models"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
	calls   int
}

func (s *stubRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	s.calls++
	return s.revoked[token], s.err
}

func newMaker() *jwt.MakerImpl {
	return jwt.NewJWTMaker("authz-test-secret", time.Hour)
}

func TestEvaluate_ShortCircuitsOnFirstDenial(t *testing.T) {
	var called []string
	check := func(name string, d Decision) Check {
		return func(context.Context, *Request) Decision {
			called = append(called, name)
			return d
		}
	}

	d := Evaluate(context.Background(), &Request{},
		check("first", Allow()),
		check("second", Deny(http.StatusForbidden, "no")),
		check("third", Allow()),
	)

	assert.False(t, d.Allowed)
	assert.Equal(t, http.StatusForbidden, d.Status)
	assert.Equal(t, []string{"first", "second"}, called)
	assert.True(t, Evaluate(context.Background(), &Request{}).Allowed)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{header: "bearer abc", want: "abc"},
		{header: "Basic dXNlcjpwYXNz", want: ""},
		{header: "Bearer", want: ""},
		{header: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBearer(tt.header))
		})
	}
}

func TestBearer(t *testing.T) {
	maker := newMaker()
	valid, err := maker.GenerateToken("acc-1", "a@example.com", models.RoleUser)
	require.NoError(t, err)
	forged, err := jwt.NewJWTMaker("other", time.Hour).GenerateToken("acc-1", "a@example.com", models.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		revocations *stubRevocations
		wantAllowed bool
		wantReason  string
	}{
		{name: "valid token", token: valid, revocations: &stubRevocations{}, wantAllowed: true},
		{name: "missing token", token: "", revocations: &stubRevocations{}, wantReason: ReasonUnauthorized},
		{
			name:        "revoked token",
			token:       valid,
			revocations: &stubRevocations{revoked: map[string]bool{valid: true}},
			wantReason:  ReasonRevoked,
		},
		{
			name:        "revocation store error",
			token:       valid,
			revocations: &stubRevocations{err: errors.New("redis down")},
			wantReason:  ReasonUnauthorized,
		},
		{name: "bad signature", token: forged, revocations: &stubRevocations{}, wantReason: ReasonUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{Token: tt.token}
			d := Bearer(maker, tt.revocations)(context.Background(), req)

			assert.Equal(t, tt.wantAllowed, d.Allowed)
			if tt.wantAllowed {
				require.NotNil(t, req.Principal)
				assert.Equal(t, "acc-1", req.Principal.Subject)
				assert.Equal(t, "a@example.com", req.Principal.Email)
				assert.Equal(t, models.RoleUser, req.Principal.Role)
				assert.False(t, req.Principal.ExpiresAt.IsZero())
				return
			}
			assert.Equal(t, http.StatusUnauthorized, d.Status)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Nil(t, req.Principal)
		})
	}
}

func TestBearer_MissingTokenSkipsRevocationLookup(t *testing.T) {
	rev := &stubRevocations{}
	Bearer(newMaker(), rev)(context.Background(), &Request{})
	assert.Zero(t, rev.calls)
}

func TestBearer_RejectsTokenAfterLogout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	blacklist := cache.NewBlacklist(client, time.Hour)
	maker := newMaker()
	ctx := context.Background()

	token, err := maker.GenerateToken("acc-1", "a@example.com", models.RoleUser)
	require.NoError(t, err)

	assert.True(t, Bearer(maker, blacklist)(ctx, &Request{Token: token}).Allowed)

	require.NoError(t, blacklist.Add(ctx, token, time.Hour))

	for i := 0; i < 3; i++ {
		d := Bearer(maker, blacklist)(ctx, &Request{Token: token})
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonRevoked, d.Reason)
	}
}

func TestRoles(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
		roles     []string
		want      int
	}{
		{name: "admin bypasses", principal: &Principal{Role: models.RoleAdmin}, roles: []string{"AUDITOR"}, want: http.StatusOK},
		{name: "member", principal: &Principal{Role: models.RoleUser}, roles: []string{models.RoleUser}, want: http.StatusOK},
		{name: "not member", principal: &Principal{Role: models.RoleUser}, roles: []string{models.RoleAdmin}, want: http.StatusForbidden},
		{name: "no roles declared", principal: &Principal{Role: models.RoleUser}, want: http.StatusOK},
		{name: "no principal", principal: nil, roles: []string{models.RoleUser}, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Roles(tt.roles...)(context.Background(), &Request{Principal: tt.principal})
			assert.Equal(t, tt.want, d.Status)
		})
	}
}

func TestOwnership(t *testing.T) {
	user := &Principal{Subject: "acc-1", Role: models.RoleUser}
	admin := &Principal{Subject: "acc-9", Role: models.RoleAdmin}

	tests := []struct {
		name      string
		principal *Principal
		pathID    string
		want      int
	}{
		{name: "own id", principal: user, pathID: "acc-1", want: http.StatusOK},
		{name: "other id", principal: user, pathID: "acc-2", want: http.StatusForbidden},
		{name: "admin any id", principal: admin, pathID: "acc-2", want: http.StatusOK},
		{name: "no principal", principal: nil, pathID: "acc-1", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Ownership()(context.Background(), &Request{Principal: tt.principal, PathID: tt.pathID})
			assert.Equal(t, tt.want, d.Status)
		})
	}
}

func TestResourceOwner(t *testing.T) {
	lookup := func(_ context.Context, id string) (string, error) {
		switch id {
		case "post-1":
			return "acc-1", nil
		case "post-broken":
			return "", errors.New("db down")
		default:
			return "", models.ErrNotFound
		}
	}
	user := &Principal{Subject: "acc-1", Role: models.RoleUser}
	stranger := &Principal{Subject: "acc-2", Role: models.RoleUser}
	admin := &Principal{Subject: "acc-9", Role: models.RoleAdmin}

	tests := []struct {
		name      string
		principal *Principal
		pathID    string
		want      int
	}{
		{name: "owner", principal: user, pathID: "post-1", want: http.StatusOK},
		{name: "stranger", principal: stranger, pathID: "post-1", want: http.StatusForbidden},
		{name: "admin", principal: admin, pathID: "post-1", want: http.StatusOK},
		{name: "missing resource", principal: user, pathID: "post-x", want: http.StatusNotFound},
		{name: "lookup failure", principal: user, pathID: "post-broken", want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ResourceOwner(lookup)(context.Background(), &Request{Principal: tt.principal, PathID: tt.pathID})
			assert.Equal(t, tt.want, d.Status)
		})
	}
}

func TestBearerThenOwnership(t *testing.T) {
	maker := newMaker()
	token, err := maker.GenerateToken("acc-1", "a@example.com", models.RoleUser)
	require.NoError(t, err)
	checks := []Check{Bearer(maker, &stubRevocations{}), Ownership()}

	own := Evaluate(context.Background(), &Request{Token: token, PathID: "acc-1"}, checks...)
	other := Evaluate(context.Background(), &Request{Token: token, PathID: "acc-2"}, checks...)

	assert.True(t, own.Allowed)
	assert.Equal(t, http.StatusForbidden, other.Status)
}

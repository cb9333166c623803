package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("correct horse battery staple")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword("correct horse battery staple", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(match)

	_, err = ComparePassword("whatever", "plaintext")
	req.ErrorIs(err, ErrInvalidHash)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, expiresAt, err := issuer.Issue("user-42")
	req.NoError(err)
	req.WithinDuration(time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Verify(token)
	req.NoError(err)
	req.Equal("user-42", claims.Subject)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, _, err := issuer.Issue("user-42")
	require.NoError(t, err)

	expired := NewTokenIssuer(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue("user-42")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		with  *TokenIssuer
	}{
		{"wrong secret", token, NewTokenIssuer("another-secret-another-secret-xx", time.Hour)},
		{"expired", expiredToken, issuer},
		{"garbage", "not.a.token", issuer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.with.Verify(tt.token)
			require.Error(t, err)
		})
	}
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, _, err := issuer.Issue("user-42")
	require.NoError(t, err)

	var seen string
	h := Middleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + token, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			r := httptest.NewRequest(http.MethodGet, "/events/user/user-42", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusNoContent {
				require.Equal(t, "user-42", seen)
			} else {
				require.Empty(t, seen)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("a-long-and-complex-password-for-bench-123!")
	}
}

package httpapi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// Claims are the JWT claims issued by the token endpoint.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// User is an account allowed to request tokens.
type User struct {
	Username string
	Password string
	Role     string
}

// ParseUsers reads "username:password:role" entries. The role is optional
// and defaults to "user".
func ParseUsers(entries []string) ([]User, error) {
	users := make([]User, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("%w: server.users entry must be user:password[:role]", domain.ErrInvalidConfig)
		}
		user := User{Username: parts[0], Password: parts[1], Role: "user"}
		if len(parts) == 3 && parts[2] != "" {
			user.Role = parts[2]
		}
		users = append(users, user)
	}
	return users, nil
}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	users  []User
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. The secret must be non-empty.
func NewAuthenticator(secret string, ttl time.Duration, users []User) (*Authenticator, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, users: users, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Login checks credentials and issues a token.
func (a *Authenticator) Login(username, password string) (string, error) {
	for _, u := range a.users {
		userOK := subtle.ConstantTimeCompare([]byte(u.Username), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
		if userOK && passOK {
			return a.Issue(u.Username, u.Role)
		}
	}
	return "", fmt.Errorf("%w: incorrect username or password", domain.ErrUnauthorized)
}

// Issue signs a token for subject without checking credentials.
func (a *Authenticator) Issue(subject, role string) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses and validates a token.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized)
	}
	return claims, nil
}

type claimsKey struct{}

// ClaimsFrom returns the claims stored by the auth middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// RequireAuth rejects requests without a valid bearer token.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			jsonError(w, "missing authorization", http.StatusUnauthorized)
			return
		}
		claims, err := a.Verify(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/iurnickita/affiliatemart/internal/auth/config"
	"github.com/iurnickita/affiliatemart/internal/model"
)

type Auth interface {
	Issue(role string, ref string) (string, error)
	Parse(token string) (Claims, error)
	Middleware(h http.HandlerFunc, roles ...string) http.HandlerFunc
	// Open сообщает, что секрет не задан и токены не проверяются.
	Open() bool
}

const (
	RoleAdmin     = "admin"
	RoleAffiliate = "affiliate"

	HeaderRoleKey = "X-Affiliate-Role"
	HeaderRefKey  = "X-Affiliate-Ref"

	cookieToken = "affiliateToken"
)

var (
	ErrNoToken      = errors.New("no token")
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("forbidden")
	ErrUnknownRole  = errors.New("unknown role")
	ErrNoSecret     = errors.New("auth secret is not configured")
)

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Ref  string `json:"ref,omitempty"`
}

type auth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuth(cfg config.Config) Auth {
	return &auth{secret: []byte(cfg.Secret), ttl: cfg.TokenTTL, now: time.Now}
}

func (a *auth) Open() bool {
	return len(a.secret) == 0
}

func (a *auth) Issue(role string, ref string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrNoSecret
	}
	switch role {
	case RoleAdmin:
	case RoleAffiliate:
		if model.NormalizeReferrerCode(ref) == "" {
			return "", fmt.Errorf("%w: affiliate token needs ref", ErrUnknownRole)
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)},
		Role:             role,
		Ref:              model.NormalizeReferrerCode(ref),
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *auth) Parse(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Middleware checks the bearer token (or cookie) and passes role and ref to
// the handler in request headers. Without a configured secret every request
// is treated as admin.
func (a *auth) Middleware(h http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// заголовки выставляет только middleware
		r.Header.Del(HeaderRoleKey)
		r.Header.Del(HeaderRefKey)

		claims := Claims{Role: RoleAdmin}
		if len(a.secret) != 0 {
			tokenString, err := tokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			claims, err = a.Parse(tokenString)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
		}
		if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
			http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
			return
		}

		r.Header.Set(HeaderRoleKey, claims.Role)
		r.Header.Set(HeaderRefKey, claims.Ref)

		h.ServeHTTP(w, r)
	}
}

func tokenFromRequest(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:]), nil
	}
	tokenCookie, err := r.Cookie(cookieToken)
	if err != nil || tokenCookie.Value == "" {
		return "", ErrNoToken
	}
	return tokenCookie.Value, nil
}

// Package auth turns bearer tokens issued by the identity provider into an
// explicit domain.Viewer. It does not manage users or sessions.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/errors"
)

const (
	defaultTTL = 8 * time.Hour
	viewerKey  = "auth.viewer"
)

type Config struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

type Service struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewService(c Config) *Service {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		hmac: []byte(c.Secret),
		ttl:  ttl,
		now:  now,
	}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the viewer. Production tokens come from the
// identity provider; this is used by tooling and tests sharing the secret.
func (s *Service) IssueToken(v domain.Viewer) (string, error) {
	now := s.now()
	claims := &Claims{
		Role: string(v.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   v.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.hmac)
}

// Parse verifies the token and returns the viewer it names.
func (s *Service) Parse(token string) (domain.Viewer, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domain.Viewer{}, fmt.Errorf("parse token: %w", err)
	}
	if !t.Valid || claims.Subject == "" {
		return domain.Viewer{}, fmt.Errorf("parse token: missing subject")
	}

	return domain.Viewer{UserID: claims.Subject, Role: domain.Role(claims.Role)}, nil
}

// Middleware attaches the viewer to the request. Requests without a token
// continue as anonymous; a token that fails verification is rejected.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			abort(c, "authorization header must be a bearer token", nil)
			return
		}

		v, err := s.Parse(token)
		if err != nil {
			abort(c, "invalid or expired token", err)
			return
		}

		c.Set(viewerKey, v)
		c.Next()
	}
}

// ViewerFrom returns the viewer attached by Middleware, anonymous if none.
func ViewerFrom(c *gin.Context) domain.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		return v.(domain.Viewer)
	}
	return domain.Viewer{}
}

func abort(c *gin.Context, msg string, cause error) {
	e := errors.New(errors.CodeUnauthenticated,
		errors.WithReason(errors.ReasonAuthRequired),
		errors.WithMessagef("%s", msg),
		errors.WithCause(cause))

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": e})
}

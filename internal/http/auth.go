package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"planledger/internal/log"
)

// ownerKey holds the authenticated owner id in the gin context.
const ownerKey = "owner_id"

// Authenticator turns an HS256 bearer token into an owner id. The token's
// subject is the owner.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
	logger *log.Logger
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
		logger: log.ForComponent(log.ComponentAuth),
	}
}

// Owner validates a raw token and returns its subject.
func (a *Authenticator) Owner(raw string) (string, error) {
	token, err := a.parser.Parse(raw, func(*jwt.Token) (any, error) { return a.secret, nil })
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sub) == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token", Type: log.ErrorTypeAuth})
			return
		}
		owner, err := a.Owner(strings.TrimSpace(raw))
		if err != nil {
			a.logger.WarnContext(c.Request.Context(), "Rejected bearer token",
				log.FieldClientIP, c.ClientIP(), log.FieldError, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid bearer token", Type: log.ErrorTypeAuth})
			return
		}
		c.Set(ownerKey, owner)
		ctx := c.Request.Context()
		c.Request = c.Request.WithContext(log.IntoContext(ctx, log.FromContext(ctx).With(log.FieldOwnerID, owner)))
		c.Next()
	}
}

func ownerOf(c *gin.Context) string {
	return c.GetString(ownerKey)
}

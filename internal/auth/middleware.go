package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Actor is the staff member a request acts on behalf of.
type Actor struct {
	ID   string
	Name string
	Role string
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored in ctx.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// StaffOptions configures the Staff middleware.
type StaffOptions struct {
	SigningKey string
	Issuer     string
	// Required rejects requests without a bearer token. When false such
	// requests act as DefaultActor.
	Required     bool
	DefaultActor Actor
}

// Staff resolves the request's actor from an HS256 bearer token and stores it
// in the request context. A present but invalid token is always rejected.
func Staff(opts StaffOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			if opts.Required || opts.DefaultActor.ID == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			c.Request = c.Request.WithContext(WithActor(c.Request.Context(), opts.DefaultActor))
			c.Next()
			return
		}
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, opts.SigningKey, opts.Issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		actor := Actor{ID: claims.Subject, Name: claims.Name, Role: claims.Role}
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

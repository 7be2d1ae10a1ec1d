package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// identityKey is the gin context key holding the resolved caller identity.
const identityKey = "identity"

// TokenResolver turns an opaque bearer credential into a caller identity.
// Identity issuance itself is external; the server only resolves.
type TokenResolver interface {
	Resolve(token string) (identity string, ok bool)
}

// StaticResolver resolves tokens from a fixed map, for dev and tests.
type StaticResolver map[string]string

// Resolve implements TokenResolver.
func (r StaticResolver) Resolve(token string) (string, bool) {
	identity, ok := r[token]
	return identity, ok
}

// requireIdentity extracts and resolves the bearer token, aborting with 401
// when it is missing or unknown.
func requireIdentity(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		identity, ok := resolver.Resolve(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown credentials"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// callerIdentity returns the identity set by requireIdentity.
func callerIdentity(c *gin.Context) string {
	return c.GetString(identityKey)
}

// bearerToken strips the Bearer prefix from an Authorization header.
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(header)
}

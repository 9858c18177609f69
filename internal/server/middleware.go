package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/spacebook/internal/auth/domain"
	obscontext "github.com/smallbiznis/spacebook/internal/observability/context"
	"github.com/smallbiznis/spacebook/internal/observability/logger"
	"go.uber.org/zap"
)

const contextCredentialKey = "credential"

// CredentialRequired verifies the bearer token and stores the credential
// on the gin context.
func (s *Server) CredentialRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			AbortWithError(c, authdomain.ErrMissingCredential)
			return
		}

		cred, err := s.verifier.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextCredentialKey, cred)
		if cred.UserID != 0 {
			c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), cred.UserID.String()))
		}
		c.Next()
	}
}

func credentialFrom(c *gin.Context) authdomain.Credential {
	value, ok := c.Get(contextCredentialKey)
	if !ok {
		return authdomain.Credential{}
	}
	cred, _ := value.(authdomain.Credential)
	return cred
}

// RateLimit admits requests per caller. Callers are keyed by user id when a
// credential is present, otherwise by client IP. Limiter failures let the
// request through.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if cred := credentialFrom(c); cred.UserID != 0 {
			key = "user:" + cred.UserID.String()
		}

		ctx := c.Request.Context()
		res, err := s.limiter.Allow(ctx, key)
		if err != nil {
			logger.WithContext(ctx, s.log).Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			route := c.FullPath()
			s.metrics.RateLimited(route)
			logger.WithContext(ctx, s.log).Warn("rate limit exceeded",
				zap.String("key", key),
				zap.String("route", route),
				zap.Duration("retry_after", res.RetryAfter),
			)
			AbortWithError(c, &RateLimitedError{RetryAfter: res.RetryAfter})
			return
		}
		c.Next()
	}
}

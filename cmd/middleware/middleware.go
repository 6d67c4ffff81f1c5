package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"alumnihub/internal/auth"
	"alumnihub/internal/dto"
)

const (
	CtxMemberID    = "member_id"
	CtxMemberEmail = "member_email"
	CtxRole        = "role"
)

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()
		zlog.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func bearerToken(c *ginext.Context) string {
	header := c.GetHeader("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}

// Auth requires a valid member token and puts the claims on the context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *ginext.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(401, dto.Response{
				Status: "error",
				Error:  &dto.Error{Code: "UNAUTHORIZED", Desc: "Authorization header required"},
			})
			return
		}

		claims, err := auth.ValidateToken(secret, tokenString)
		if err != nil {
			desc := "Invalid token"
			if err == auth.ErrTokenExpired {
				desc = "Token has expired"
			}
			c.AbortWithStatusJSON(401, dto.Response{
				Status: "error",
				Error:  &dto.Error{Code: "UNAUTHORIZED", Desc: desc},
			})
			return
		}

		c.Set(CtxMemberID, claims.MemberID)
		c.Set(CtxMemberEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// OptionalAuth sets claims when a valid token is presented but lets
// anonymous requests through; used by the public event detail endpoint to
// compute is_registered.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *ginext.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := auth.ValidateToken(secret, tokenString); err == nil {
				c.Set(CtxMemberID, claims.MemberID)
				c.Set(CtxMemberEmail, claims.Email)
				c.Set(CtxRole, claims.Role)
			}
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *ginext.Context) {
		if c.GetString(CtxRole) != auth.RoleAdmin {
			c.AbortWithStatusJSON(403, dto.Response{
				Status: "error",
				Error:  &dto.Error{Code: "FORBIDDEN", Desc: "Admin access required"},
			})
			return
		}
		c.Next()
	}
}

// MemberID reads the authenticated member id set by Auth/OptionalAuth.
func MemberID(c *ginext.Context) (int64, bool) {
	v, ok := c.Get(CtxMemberID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func MemberEmail(c *ginext.Context) string {
	return c.GetString(CtxMemberEmail)
}

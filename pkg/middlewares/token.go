package middlewares

import (
	"context"
	"strings"

	t_token "video_transcode_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
	//TokenRaw the raw token string, set c.locals name
	TokenRaw = "token"
)

// SessionValidator reports whether the token's session is still alive
type SessionValidator func(ctx context.Context, memberID, token string) error

// JWTMiddleware validates the JWT from the Authorization header, query or cookie
func JWTMiddleware(validators ...SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWTWrapper(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		for _, validate := range validators {
			if err := validate(c.UserContext(), claims.MemberID, tokenStr); err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Session expired",
				})
			}
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenRole, claims.Role)
		c.Locals(TokenRaw, tokenStr)

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if q := c.Query(QueryToken); q != "" {
		return q
	}
	return c.Cookies(CookieToken)
}

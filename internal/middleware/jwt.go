package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ipes/ipes-go-api/internal/utils"
)

// JWTProtected validates HMAC bearer tokens and resolves the caller into an Actor.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authorization header missing", nil)
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid authorization header", nil)
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token", nil)
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token", nil)
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid token claims", nil)
		}

		userID := claimID(claims, "sub", "user_id", "id")
		if userID == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "token subject missing", nil)
		}

		SetActor(c, Actor{
			UserID:    *userID,
			StudentID: claimID(claims, "student_id"),
			Roles:     claimRoles(claims),
		})

		return c.Next()
	}
}

func claimID(claims jwt.MapClaims, keys ...string) *uint {
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeID(value); err == nil {
				return &normalized
			}
		}
	}
	return nil
}

func normalizeID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid identifier")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid identifier")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported identifier type")
	}
}

// claimRoles merges the "role" and "roles" claims. Either may be a string, a comma
// separated string or an array.
func claimRoles(claims jwt.MapClaims) RoleSet {
	roles := make([]string, 0)
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			roles = append(roles, strings.Split(v, ",")...)
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok {
					roles = append(roles, str)
				}
			}
		}
	}
	return NewRoleSet(roles...)
}

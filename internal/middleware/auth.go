package middleware

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"retail-erp-backend/internal/models"
	"retail-erp-backend/internal/service"
)

const (
	localUserID = "userID"
	localRole   = "userRole"
)

// TokenCookie carries the same JWT as the Authorization header for the HTML pages.
const TokenCookie = "erp_token"

// tokenFromRequest prefers the bearer header and falls back to the cookie.
func tokenFromRequest(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return "", errors.New("Bearer token not found")
		}
		return tokenString, nil
	}
	if cookie := c.Cookies(TokenCookie); cookie != "" {
		return cookie, nil
	}
	return "", errors.New("Authorization header is missing")
}

func authenticate(c *fiber.Ctx, auth *service.AuthService) error {
	tokenString, err := tokenFromRequest(c)
	if err != nil {
		return err
	}
	claims, err := auth.ParseToken(tokenString)
	if err != nil {
		log.WithField("request_id", c.Locals("requestid")).WithError(err).Debug("rejected token")
		return errors.New("Invalid or expired token")
	}
	c.Locals(localUserID, claims.UserID)
	c.Locals(localRole, claims.Role)
	return nil
}

// JWTProtected protects API routes with JWT authentication.
func JWTProtected(auth *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, auth); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Next()
	}
}

// PageProtected is JWTProtected for rendered pages: it redirects to the login form.
func PageProtected(auth *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, auth); err != nil {
			return c.Redirect("/login")
		}
		return c.Next()
	}
}

// RoleProtected lets the request through only when the authenticated
// operator holds one of roles.
func RoleProtected(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(localRole).(models.Role)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Sign in to continue"})
		}
		if !slices.Contains(roles, role) {
			log.WithFields(log.Fields{"request_id": c.Locals("requestid"), "role": role, "path": c.Path()}).
				Debug("role not allowed")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": fmt.Sprintf("The %s role cannot perform this action", role),
			})
		}
		return c.Next()
	}
}

// GetUserFromContext reads the operator set by JWTProtected or PageProtected.
func GetUserFromContext(c *fiber.Ctx) (uint, models.Role, error) {
	userID, idOK := c.Locals(localUserID).(uint)
	role, roleOK := c.Locals(localRole).(models.Role)
	if !idOK || !roleOK {
		return 0, "", errors.New("request is not authenticated")
	}
	return userID, role, nil
}

package serverutils

import (
	"ai-agent-be/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// JwtMiddleware rejects requests without a valid token and stores the
// subject under the "user_id" local.
func JwtMiddleware(verifier auth.TokenVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if authHeader == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		ok, subject := verifier.VerifyToken(authHeader)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals("user_id", subject)
		return ctx.Next()
	}
}

// AdminMiddleware only lets through tokens carrying the admin role.
func AdminMiddleware(verifier auth.AdminVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if authHeader == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		ok, admin, subject := verifier.VerifyAdmin(authHeader)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
		if !admin {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(fiber.StatusForbidden, "Access denied: Admins only"))
		}

		ctx.Locals("user_id", subject)
		return ctx.Next()
	}
}

package serverutils

import (
	"strings"

	"storefront-chat-be/internal/entity"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserId   = "user_id"
	LocalIdentity = "identity"
)

func JwtMiddleware(secret string) fiber.Handler {
	key := []byte(secret)
	return func(ctx *fiber.Ctx) error {
		tokenStr, ok := BearerToken(ctx.Get("Authorization"))
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		identity, err := ParseIdentity(tokenStr, key)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals(LocalUserId, identity.UserId)
		ctx.Locals(LocalIdentity, identity)
		return ctx.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, found && token != ""
}

// IdentityFromCtx returns the identity stored by JwtMiddleware.
func IdentityFromCtx(ctx *fiber.Ctx) (entity.Identity, bool) {
	identity, ok := ctx.Locals(LocalIdentity).(entity.Identity)
	return identity, ok
}

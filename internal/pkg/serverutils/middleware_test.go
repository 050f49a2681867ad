package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-chat-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(ErrorHandlerMiddleware())

	app.Get("/me", JwtMiddleware(testSecret), func(ctx *fiber.Ctx) error {
		identity, ok := IdentityFromCtx(ctx)
		if !ok {
			return errors.New("identity missing")
		}
		return ctx.JSON(SuccessResponse("ok", identity))
	})
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return errors.New("database password leaked here")
	})
	app.Get("/forbidden", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusForbidden, "not a participant")
	})
	return app
}

func decode[T any](t *testing.T, body io.Reader) BaseResponse[T] {
	t.Helper()
	var res BaseResponse[T]
	require.NoError(t, json.NewDecoder(body).Decode(&res))
	return res
}

func TestJwtMiddleware(t *testing.T) {
	app := newTestApp()
	token, err := IssueToken(testSecret, entity.Identity{UserId: "1", Username: "alice"}, time.Minute)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, 200, resp.StatusCode)
		res := decode[entity.Identity](t, resp.Body)
		assert.True(t, res.Success)
		assert.Equal(t, "1", res.Data.UserId)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/me", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, 401, resp.StatusCode)
		res := decode[any](t, resp.Body)
		assert.False(t, res.Success)
		assert.Equal(t, "Invalid token", res.Message)
	})
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	res := decode[any](t, resp.Body)
	assert.Equal(t, "internal server error", res.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/forbidden", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
	res = decode[any](t, resp.Body)
	assert.Equal(t, 403, res.Code)
	assert.Equal(t, "not a participant", res.Message)
}

func TestValidateRequest(t *testing.T) {
	type request struct {
		RoomId string `validate:"required"`
		Text   string `validate:"max=3"`
	}

	assert.NoError(t, ValidateRequest(request{RoomId: "1_2", Text: "hi"}))

	err := ValidateRequest(request{Text: "toolong"})
	var fiberErr *fiber.Error
	require.ErrorAs(t, err, &fiberErr)
	assert.Equal(t, fiber.StatusBadRequest, fiberErr.Code)
	assert.Contains(t, fiberErr.Message, "RoomId failed on 'required'")
	assert.Contains(t, fiberErr.Message, "Text failed on 'max'")
}

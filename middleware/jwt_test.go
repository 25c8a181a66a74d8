package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lms/apperr"
	"lms/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type body struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware, func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return unauthorized(c)
		}
		return JsonResponse(c, fiber.StatusOK, true, "ok", fiber.Map{"userId": p.UserID, "clientId": p.ClientID})
	})
	app.Get("/admin", JWTMiddleware, RequireRole(auth.RoleAdmin), func(c *fiber.Ctx) error {
		return JsonResponse(c, fiber.StatusOK, true, "ok", nil)
	})
	return app
}

func call(t *testing.T, app *fiber.App, path, token string) (int, body) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var b body
	require.NoError(t, json.Unmarshal(raw, &b))
	return resp.StatusCode, b
}

func TestJWTMiddleware_RejectsMissingAndInvalidTokens(t *testing.T) {
	app := newApp()

	for _, token := range []string{"", "not-a-jwt"} {
		status, b := call(t, app, "/me", token)
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.False(t, b.Success)
		assert.Equal(t, "Unauthorized", b.Message)
		assert.Contains(t, []string{"", "null"}, string(b.Data))
	}

	// a token without a tenant is not a valid principal
	token, err := GenerateJWT(4, 0, "user", "a@b.c")
	require.NoError(t, err)
	status, _ := call(t, app, "/me", token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestJWTMiddleware_AcceptsGeneratedToken(t *testing.T) {
	token, err := GenerateJWT(4, 2, "user", "a@b.c")
	require.NoError(t, err)

	status, b := call(t, newApp(), "/me", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, b.Success)
	assert.JSONEq(t, `{"userId":4,"clientId":2}`, string(b.Data))
}

func TestRequireRole(t *testing.T) {
	app := newApp()

	learner, err := GenerateJWT(4, 2, "user", "")
	require.NoError(t, err)
	status, b := call(t, app, "/admin", learner)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.False(t, b.Success)

	admin, err := GenerateJWT(1, 2, auth.RoleAdmin, "")
	require.NoError(t, err)
	status, _ = call(t, app, "/admin", admin)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestErrorResponse_MapsKinds(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{apperr.Unauthorized("nope"), fiber.StatusUnauthorized, "nope"},
		{apperr.Validation("bad input"), fiber.StatusBadRequest, "bad input"},
		{apperr.NotFound("Course not found!"), fiber.StatusNotFound, "Course not found!"},
		{apperr.Conflict("busy"), fiber.StatusConflict, "busy"},
		{apperr.Wrap(io.ErrUnexpectedEOF, "load course"), fiber.StatusInternalServerError, "Something went wrong!"},
	}
	for _, tc := range cases {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error { return ErrorResponse(c, tc.err) })

		status, b := call(t, app, "/", "")
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.False(t, b.Success)
		assert.Equal(t, tc.message, b.Message)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func testAuthApp(t *testing.T) (*fiber.App, *Auth) {
	t.Helper()
	auth, err := NewAuth("test-secret", "hunter2")
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	app.Post("/api/login", auth.Login)
	app.Get("/api/protected", auth.Middleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, auth
}

func login(t *testing.T, app *fiber.App, password string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"password": "`+password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestLoginAndBearerRoundTrip(t *testing.T) {
	app, _ := testAuthApp(t)

	resp := login(t, app, "hunter2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from login, got %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Token == "" {
		t.Fatal("expected a token in the login response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	protected, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if protected.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", protected.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app, _ := testAuthApp(t)

	resp := login(t, app, "wrong")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", resp.StatusCode)
	}
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	app, _ := testAuthApp(t)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestMiddlewareRejectsForeignSecret(t *testing.T) {
	app, _ := testAuthApp(t)

	otherAuth, err := NewAuth("other-secret", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	otherApp := fiber.New()
	otherApp.Post("/api/login", otherAuth.Login)
	resp := login(t, otherApp, "hunter2")
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rejected, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if rejected.StatusCode != http.StatusUnauthorized {
		t.Fatalf("token signed with another secret must be rejected, got %d", rejected.StatusCode)
	}
}

package checkout

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func makeApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": v}})
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func TestCheckoutRoute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewService(db, &stubCartReader{cart: twoItemCart()}, &stubOrderCreator{}, &stubCartOrderer{})
	app := makeApp(NewHandler(svc))

	// unauthenticated
	req := httptest.NewRequest("PUT", "/api/profile/cart/order", strings.NewReader(`{"address":{}}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}

	// successful checkout returns the created order
	req = httptest.NewRequest("PUT", "/api/profile/cart/order", strings.NewReader(`{"address":{"firstName":"A","address":"street 1"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"order"`) || !strings.Contains(string(b), `"total":25`) {
		t.Fatalf("unexpected checkout response: %s", string(b))
	}
}

func TestCheckoutRoute_EmptyCart(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewService(db, &stubCartReader{cart: nil}, &stubOrderCreator{}, &stubCartOrderer{})
	app := makeApp(NewHandler(svc))

	req := httptest.NewRequest("PUT", "/api/profile/cart/order", strings.NewReader(`{"address":{}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), "Cart is empty") {
		t.Fatalf("unexpected body: %s", string(b))
	}
}

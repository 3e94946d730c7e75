package cart

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/wichananm65/cart-api-backend/internal/product"
)

func makeAppWithCartHandler(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			claims := jwt.MapClaims{"user_id": v}
			c.Locals("user", &jwt.Token{Claims: claims})
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func TestCartRoutes_Basic(t *testing.T) {
	svc, _ := newTestService(
		product.Product{ID: "p1", Title: "Food", Price: 10},
	)
	app := makeAppWithCartHandler(NewHandler(svc))

	// unauthorized access should be blocked
	req := httptest.NewRequest("GET", "/api/profile/cart", nil)
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated GET, got %d", res.StatusCode)
	}

	// authorized GET lazily creates an empty cart
	req = httptest.NewRequest("GET", "/api/profile/cart", nil)
	req.Header.Set("X-User-ID", "u1")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for authenticated GET, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if strings.TrimSpace(string(b)) != "[]" {
		t.Fatalf("expected empty items, got %s", string(b))
	}

	// PUT inserts an item
	req = httptest.NewRequest("PUT", "/api/profile/cart", strings.NewReader(`{"productId":"p1","quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for PUT, got %d", res.StatusCode)
	}
	b, _ = io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"count":2`) {
		t.Fatalf("expected count 2 in response, got %s", string(b))
	}

	// negative quantity is rejected
	req = httptest.NewRequest("PUT", "/api/profile/cart", strings.NewReader(`{"productId":"p1","quantity":-1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for negative quantity, got %d", res.StatusCode)
	}

	// quantity zero removes the item
	req = httptest.NewRequest("PUT", "/api/profile/cart", strings.NewReader(`{"productId":"p1","quantity":0}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for removal, got %d", res.StatusCode)
	}
	b, _ = io.ReadAll(res.Body)
	if strings.Contains(string(b), "p1") {
		t.Fatalf("expected p1 removed after quantity zero, got %s", string(b))
	}

	// DELETE clears the cart
	req = httptest.NewRequest("DELETE", "/api/profile/cart", nil)
	req.Header.Set("X-User-ID", "u1")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 for clear cart, got %d", res.StatusCode)
	}
}

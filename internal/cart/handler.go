package cart

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/cart-api-backend/internal/user"
)

// Handler exposes the cart over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/profile/cart", h.getCart)
	app.Put("/api/profile/cart", h.updateCart)
	app.Delete("/api/profile/cart", h.clearCart)
}

type putCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	cart, err := h.service.GetOrCreate(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(cart.Items)
}

func (h *Handler) updateCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(putCartRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	cart, err := h.service.UpdateItem(c.Context(), userID, payload.ProductID, payload.Quantity)
	if err != nil {
		if errors.Is(err, ErrInvalidItem) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid productId or quantity"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(cart.Items)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	if err := h.service.Clear(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

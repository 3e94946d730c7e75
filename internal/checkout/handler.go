package checkout

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/cart-api-backend/internal/order"
	"github.com/wichananm65/cart-api-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Put("/api/profile/cart/order", h.checkout)
}

type checkoutRequest struct {
	Address order.Address `json:"address"`
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	created, err := h.service.Checkout(c.Context(), userID, payload.Address)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cart is empty"})
		case errors.Is(err, ErrFailed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Failed to create order"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}

	return c.JSON(fiber.Map{"order": created})
}

package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/cart-api-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/profile/cart/order", h.listOrders)
	app.Get("/api/profile/cart/order/:id", h.getOrder)
	app.Put("/api/profile/cart/order/:id/status", h.updateStatus)
	app.Delete("/api/profile/cart/order/:id", h.deleteOrder)
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func (h *Handler) listOrders(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orders, err := h.service.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(orders)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	o, err := h.service.Get(c.Context(), userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(o)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(updateStatusRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	o, err := h.service.UpdateStatus(c.Context(), userID, c.Params("id"), Status(payload.Status), payload.Comment)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "status is required"})
		case errors.Is(err, ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}

	return c.JSON(o)
}

func (h *Handler) deleteOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	if err := h.service.Delete(c.Context(), userID, c.Params("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

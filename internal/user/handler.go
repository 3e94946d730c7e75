package user

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

type Handler struct {
	service   *Service
	jwtSecret []byte
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// NewHandler takes the same secret the verifying middleware is configured
// with, so signing and verification cannot drift apart.
func NewHandler(service *Service, jwtSecret string) *Handler {
	return &Handler{service: service, jwtSecret: []byte(jwtSecret)}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/auth/register", h.register)
	app.Post("/api/auth/login", h.login)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	// profile endpoint returns the current user based on JWT claims
	app.Get("/api/profile", h.getProfile)
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(credentialsRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.Name == "" || payload.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "name and password are required"})
	}

	created, err := h.service.Register(c.Context(), payload.Name, payload.Password)
	if err != nil {
		if errors.Is(err, ErrNameExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "name already taken"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(sanitizeUser(created))
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(credentialsRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	u, err := h.service.Authenticate(c.Context(), payload.Name, payload.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid name or password"})
	}

	claims := jwt.MapClaims{
		"user_id": u.ID,
		"name":    u.Name,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    sanitizeUser(u),
		"token":   signed,
	})
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	u, err := h.service.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(fiber.Map{"user": sanitizeUser(u)})
}

// GetUserIDFromCtx extracts the authenticated user id placed in the request
// context by the JWT middleware.
func GetUserIDFromCtx(c *fiber.Ctx) (string, error) {
	u := c.Locals("user")
	if u == nil {
		return "", fiber.ErrUnauthorized
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	if raw, ok := claims["user_id"]; ok {
		if id, ok := raw.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", fiber.ErrUnauthorized
}

func sanitizeUser(u User) User {
	u.Password = ""
	return u
}

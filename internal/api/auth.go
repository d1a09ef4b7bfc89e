package api

import (
	"strings"

	"clubfunds/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signUpBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

func (h *Handler) SignUp(c *fiber.Ctx) error {
	var body signUpBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	params := service.SignUpParams{
		Name:     strings.TrimSpace(body.Name),
		Email:    strings.TrimSpace(strings.ToLower(body.Email)),
		Password: body.Password,
		Phone:    strings.TrimSpace(body.Phone),
	}
	if err := h.validate.Validate(params); err != nil {
		return h.fail(c, err)
	}

	user, err := h.auth.SignUp(c.Context(), params)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "account created",
		"user_id": user.ID,
	})
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body loginBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Email == "" || body.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "email and password are required"})
	}

	user, err := h.auth.Login(c.Context(), strings.TrimSpace(strings.ToLower(body.Email)), body.Password)
	if err != nil {
		return h.fail(c, err)
	}

	sess, err := h.store.Get(c)
	if err != nil {
		return h.fail(c, err)
	}
	sess.Set("user_id", user.ID.String())
	if err := sess.Save(); err != nil {
		return h.fail(c, err)
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "logged in",
		"token":   token,
		"user_id": user.ID,
	})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := sess.Destroy(); err != nil {
		return h.fail(c, err)
	}
	return ok(c, "logged out")
}

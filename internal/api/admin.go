package api

import (
	"strings"

	"clubfunds/internal/authz"
	"clubfunds/internal/database"
	"clubfunds/internal/middleware"
	"clubfunds/internal/service"
	"clubfunds/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type userView struct {
	ID      uuid.UUID                `json:"id"`
	Name    string                   `json:"name"`
	Email   string                   `json:"email"`
	Phone   util.Optional[string]    `json:"phone"`
	GroupID util.Optional[uuid.UUID] `json:"group_id"`
}

func presentUser(u database.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, GroupID: u.GroupID}
}

func (h *Handler) Me(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	profile, err := h.users.Me(c.Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"user":   presentUser(profile.User),
		"access": profile.Access,
	})
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	users, err := h.users.List(c.Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	views := make([]userView, len(users))
	for i, user := range users {
		views[i] = presentUser(user)
	}
	return c.JSON(fiber.Map{"users": views})
}

type updateUserBody struct {
	UserID  uuid.UUID  `json:"user_id"`
	Name    *string    `json:"name"`
	Phone   *string    `json:"phone"`
	GroupID *uuid.UUID `json:"group_id"`
	// ClearGroup removes the user from their group; GroupID wins if both set.
	ClearGroup bool `json:"clear_group"`
}

func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	var body updateUserBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.UserID == uuid.Nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "user_id is required"})
	}

	params := service.UpdateUserParams{}
	if body.Name != nil {
		params.Name = util.Some(strings.TrimSpace(*body.Name))
	}
	if body.Phone != nil {
		params.Phone = util.Some(strings.TrimSpace(*body.Phone))
	}
	if body.GroupID != nil {
		params.GroupID = util.Some(util.Some(*body.GroupID))
	} else if body.ClearGroup {
		params.GroupID = util.Some(util.None[uuid.UUID]())
	}

	user, err := h.users.Update(c.Context(), userID, body.UserID, params)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(presentUser(user))
}

type groupView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (h *Handler) ListGroups(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	groups, err := h.roles.ListGroups(c.Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	views := make([]groupView, len(groups))
	for i, group := range groups {
		views[i] = groupView{ID: group.ID, Name: group.Name}
	}
	return c.JSON(fiber.Map{"groups": views})
}

type updateGroupBody struct {
	ID   *uuid.UUID `json:"id"`
	Name string     `json:"name"`
}

// UpdateGroup creates a group when no id is given, renames it otherwise.
func (h *Handler) UpdateGroup(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	var body updateGroupBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	group, err := h.roles.UpsertGroup(c.Context(), userID, service.UpsertGroupParams{ID: body.ID, Name: body.Name})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "group saved",
		"group":   groupView{ID: group.ID, Name: group.Name},
	})
}

func (h *Handler) DeleteGroup(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid group id"})
	}

	if err := h.roles.DeleteGroup(c.Context(), userID, groupID); err != nil {
		return h.fail(c, err)
	}
	return ok(c, "group deleted")
}

type roleScopeBody struct {
	GroupID  *uuid.UUID `json:"group_id"`
	IsGlobal bool       `json:"is_global"`
}

type roleView struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Permissions []string        `json:"permissions"`
	Scopes      []roleScopeBody `json:"scopes"`
}

func (h *Handler) ListRoles(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	details, err := h.roles.ListRoles(c.Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	views := make([]roleView, len(details))
	for i, detail := range details {
		scopes := make([]roleScopeBody, len(detail.Scopes))
		for j, scope := range detail.Scopes {
			scopes[j] = roleScopeBody{IsGlobal: scope.IsGlobal}
			if scope.GroupID.IsSet {
				groupID := scope.GroupID.Val
				scopes[j].GroupID = &groupID
			}
		}
		views[i] = roleView{
			ID:          detail.Role.ID,
			Name:        detail.Role.Name,
			Permissions: detail.Permissions,
			Scopes:      scopes,
		}
	}
	return c.JSON(fiber.Map{"roles": views})
}

type updateRoleBody struct {
	ID          *uuid.UUID      `json:"id"`
	Name        string          `json:"name"`
	Permissions []string        `json:"permissions"`
	Scopes      []roleScopeBody `json:"scopes"`
}

// UpdateRole creates a role when no id is given, replaces its definition
// otherwise.
func (h *Handler) UpdateRole(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	var body updateRoleBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	scopes := make([]database.RoleScope, len(body.Scopes))
	for i, scope := range body.Scopes {
		scopes[i] = database.RoleScope{IsGlobal: scope.IsGlobal}
		if scope.GroupID != nil {
			scopes[i].GroupID = util.Some(*scope.GroupID)
		}
	}

	role, err := h.roles.UpsertRole(c.Context(), userID, service.UpsertRoleParams{
		ID:          body.ID,
		Name:        body.Name,
		Permissions: body.Permissions,
		Scopes:      scopes,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "role saved",
		"role":    roleView{ID: role.ID, Name: role.Name, Permissions: body.Permissions, Scopes: body.Scopes},
	})
}

func (h *Handler) DeleteRole(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}
	roleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid role id"})
	}

	if err := h.roles.DeleteRole(c.Context(), userID, roleID); err != nil {
		return h.fail(c, err)
	}
	return ok(c, "role deleted")
}

type assignRoleBody struct {
	UserID   uuid.UUID  `json:"user_id"`
	RoleID   uuid.UUID  `json:"role_id"`
	GroupID  *uuid.UUID `json:"group_id"`
	IsGlobal bool       `json:"is_global"`
}

func (h *Handler) AssignRole(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	var body assignRoleBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	err := h.roles.AssignRole(c.Context(), userID, service.AssignRoleParams{
		UserID:   body.UserID,
		RoleID:   body.RoleID,
		GroupID:  body.GroupID,
		IsGlobal: body.IsGlobal,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "role assigned")
}

func (h *Handler) RemoveRole(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	var body struct {
		UserID uuid.UUID `json:"user_id"`
		RoleID uuid.UUID `json:"role_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.roles.RemoveRole(c.Context(), userID, body.UserID, body.RoleID); err != nil {
		return h.fail(c, err)
	}
	return ok(c, "role removed")
}

func (h *Handler) ListPermissions(c *fiber.Ctx) error {
	userID, okAuth := middleware.UserID(c)
	if !okAuth {
		return h.fail(c, service.ErrUnauthenticated)
	}

	permissions, err := h.roles.ListPermissions(c.Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	type permissionView struct {
		Name string     `json:"name"`
		Tier authz.Tier `json:"tier"`
	}
	views := make([]permissionView, len(permissions))
	for i, permission := range permissions {
		views[i] = permissionView{Name: permission.Name, Tier: authz.TierOf(permission.Name)}
	}
	return c.JSON(fiber.Map{"permissions": views})
}

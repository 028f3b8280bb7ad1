package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/service"
)

// MemberHandler serves the member register and visit log
type MemberHandler struct {
	members   *service.MemberService
	lifecycle *service.LifecycleManager
}

func NewMemberHandler(members *service.MemberService, lifecycle *service.LifecycleManager) *MemberHandler {
	return &MemberHandler{members: members, lifecycle: lifecycle}
}

type registerMemberRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// Register handles POST /v1/desk/members
func (h *MemberHandler) Register(c *fiber.Ctx) error {
	var req registerMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	member, err := h.members.Register(c.UserContext(), req.FullName, req.Phone)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

// List handles GET /v1/desk/members
func (h *MemberHandler) List(c *fiber.Ctx) error {
	members, err := h.members.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"members": members, "count": len(members)})
}

// Get handles GET /v1/desk/members/:id
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	member, err := h.members.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(member)
}

// Delete handles DELETE /v1/desk/members/:id
func (h *MemberHandler) Delete(c *fiber.Ctx) error {
	if err := h.members.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListVisits handles GET /v1/desk/visits?date=YYYY-MM-DD; no date means today
func (h *MemberHandler) ListVisits(c *fiber.Ctx) error {
	day := h.lifecycle.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := domain.ParseDay(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		day = parsed
	}

	visits, err := h.members.VisitsForDate(c.UserContext(), day)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"date":   domain.DayKey(day),
		"count":  len(visits),
		"visits": visits,
	})
}

// DeleteVisit handles DELETE /v1/desk/visits/:id
func (h *MemberHandler) DeleteVisit(c *fiber.Ctx) error {
	if err := h.members.DeleteVisit(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

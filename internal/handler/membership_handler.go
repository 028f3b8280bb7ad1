package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/service"
)

// MembershipHandler serves plan purchases and membership edits
type MembershipHandler struct {
	lifecycle *service.LifecycleManager
}

func NewMembershipHandler(lifecycle *service.LifecycleManager) *MembershipHandler {
	return &MembershipHandler{lifecycle: lifecycle}
}

// Plans handles GET /v1/desk/plans
func (h *MembershipHandler) Plans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": domain.Plans()})
}

// ListByMember handles GET /v1/desk/members/:id/memberships
func (h *MembershipHandler) ListByMember(c *fiber.Ctx) error {
	memberships, err := h.lifecycle.ListMemberships(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"memberships": memberships})
}

type addMembershipRequest struct {
	// Plan accepts a plan code or any label the desk has used for it
	Plan  string `json:"plan"`
	Price int64  `json:"price"`
}

// Add handles POST /v1/desk/members/:id/memberships
func (h *MembershipHandler) Add(c *fiber.Ctx) error {
	var req addMembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	plan, err := domain.ParsePlanLabel(req.Plan)
	if err != nil {
		return respondError(c, err)
	}

	membership, err := h.lifecycle.AddMembership(c.UserContext(), c.Params("id"), plan.Code, req.Price)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(membership)
}

// Edit handles PUT /v1/desk/memberships/:id
func (h *MembershipHandler) Edit(c *fiber.Ctx) error {
	var patch domain.MembershipPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "invalid request body")
	}

	membership, err := h.lifecycle.EditMembership(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(membership)
}

// Delete handles DELETE /v1/desk/memberships/:id
func (h *MembershipHandler) Delete(c *fiber.Ctx) error {
	if err := h.lifecycle.DeleteMembership(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

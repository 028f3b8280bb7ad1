package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/service"
	"github.com/mansoorceksport/frontdesk/internal/telemetry"
)

// CheckInHandler serves the desk's admission endpoints
type CheckInHandler struct {
	coordinator *service.CheckInCoordinator
	lifecycle   *service.LifecycleManager
}

func NewCheckInHandler(coordinator *service.CheckInCoordinator, lifecycle *service.LifecycleManager) *CheckInHandler {
	return &CheckInHandler{coordinator: coordinator, lifecycle: lifecycle}
}

type checkInRequest struct {
	MemberID string `json:"member_id"`
}

// CheckIn handles POST /v1/desk/check-ins. The body is always the result;
// the status tells whether a visit was written.
func (h *CheckInHandler) CheckIn(c *fiber.Ctx) error {
	var req checkInRequest
	if err := c.BodyParser(&req); err != nil || req.MemberID == "" {
		return badRequest(c, "member_id is required")
	}

	result := h.coordinator.CheckIn(c.UserContext(), req.MemberID)
	telemetry.SetSpanAttribute(c, "checkin.outcome", string(result.Outcome))
	telemetry.SetSpanAttribute(c, "checkin.attempt_id", result.AttemptID)
	return c.Status(checkInStatus(result.Outcome)).JSON(result)
}

func checkInStatus(outcome domain.CheckInOutcome) int {
	switch outcome {
	case domain.CheckInCommitted:
		return fiber.StatusCreated
	case domain.CheckInFailed:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusOK
}

// Eligibility handles GET /v1/desk/members/:id/eligibility
func (h *CheckInHandler) Eligibility(c *fiber.Ctx) error {
	eligibility, err := h.lifecycle.Eligibility(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(eligibility)
}

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/service"
)

// OwnerHandler serves the dashboard and the books
type OwnerHandler struct {
	dashboard   *service.DashboardService
	aggregation *service.AggregationEngine
	finance     *service.FinanceService
}

func NewOwnerHandler(dashboard *service.DashboardService, aggregation *service.AggregationEngine, finance *service.FinanceService) *OwnerHandler {
	return &OwnerHandler{dashboard: dashboard, aggregation: aggregation, finance: finance}
}

// Dashboard handles GET /v1/owner/dashboard
func (h *OwnerHandler) Dashboard(c *fiber.Ctx) error {
	snap, err := h.dashboard.GetDashboardSnapshot(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// EndingSoon handles GET /v1/owner/memberships/ending-soon?limit=N
func (h *OwnerHandler) EndingSoon(c *fiber.Ctx) error {
	memberships, err := h.aggregation.MembershipsEndingSoon(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if limit := c.QueryInt("limit", 0); limit > 0 && limit < len(memberships) {
		memberships = memberships[:limit]
	}
	return c.JSON(fiber.Map{"memberships": memberships})
}

// MonthlyReport handles GET /v1/owner/finance/:year/:month
func (h *OwnerHandler) MonthlyReport(c *fiber.Ctx) error {
	month, year, err := period(c)
	if err != nil {
		return respondError(c, err)
	}
	snap, err := h.finance.MonthlyReport(c.UserContext(), month, year)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// ArchiveReport handles POST /v1/owner/finance/:year/:month/archive
func (h *OwnerHandler) ArchiveReport(c *fiber.Ctx) error {
	month, year, err := period(c)
	if err != nil {
		return respondError(c, err)
	}
	url, err := h.finance.ArchiveMonthlySnapshot(c.UserContext(), month, year)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

type expenseRequest struct {
	Type        string     `json:"type"`
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	IncurredAt  *time.Time `json:"incurred_at"`
}

// RecordExpense handles POST /v1/owner/expenses
func (h *OwnerHandler) RecordExpense(c *fiber.Ctx) error {
	var req expenseRequest
	if err := c.BodyParser(&req); err != nil || req.Type == "" {
		return badRequest(c, "type and amount are required")
	}

	expense := &domain.Expense{Type: req.Type, Amount: req.Amount, Description: req.Description}
	if req.IncurredAt != nil {
		expense.IncurredAt = *req.IncurredAt
	}
	if err := h.finance.RecordExpense(c.UserContext(), expense); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(expense)
}

// ListExpenses handles GET /v1/owner/expenses?year=&month=
func (h *OwnerHandler) ListExpenses(c *fiber.Ctx) error {
	month, year, err := period(c)
	if err != nil {
		return respondError(c, err)
	}
	expenses, err := h.finance.ListExpenses(c.UserContext(), month, year)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"expenses": expenses})
}

// DeleteExpense handles DELETE /v1/owner/expenses/:id
func (h *OwnerHandler) DeleteExpense(c *fiber.Ctx) error {
	if err := h.finance.DeleteExpense(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListServices handles GET /v1/owner/services?year=&month=
func (h *OwnerHandler) ListServices(c *fiber.Ctx) error {
	month, year, err := period(c)
	if err != nil {
		return respondError(c, err)
	}
	services, err := h.finance.ListServices(c.UserContext(), month, year)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"services": services})
}

type serviceRequest struct {
	MemberID        string     `json:"member_id"`
	ServiceType     string     `json:"service_type"`
	Price           int64      `json:"price"`
	DurationMinutes int        `json:"duration_minutes"`
	TakenAt         *time.Time `json:"taken_at"`
}

// RecordService handles POST /v1/desk/services
func (h *OwnerHandler) RecordService(c *fiber.Ctx) error {
	var req serviceRequest
	if err := c.BodyParser(&req); err != nil || req.MemberID == "" || req.ServiceType == "" {
		return badRequest(c, "member_id and service_type are required")
	}

	svc := &domain.AncillaryService{
		MemberID:        req.MemberID,
		ServiceType:     req.ServiceType,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
	}
	if req.TakenAt != nil {
		svc.TakenAt = *req.TakenAt
	}
	if err := h.finance.RecordService(c.UserContext(), svc); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(svc)
}

// DeleteService handles DELETE /v1/desk/services/:id
func (h *OwnerHandler) DeleteService(c *fiber.Ctx) error {
	if err := h.finance.DeleteService(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

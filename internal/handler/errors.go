package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/service"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrMembershipNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrUnknownPlan),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidSessions),
		errors.Is(err, domain.ErrInvalidMember),
		errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, domain.ErrInvalidDate):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrActiveSessionPackExists),
		errors.Is(err, domain.ErrMembershipConflict):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrArchiveUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// period reads a month/year pair from route params or, failing that, the
// query string.
func period(c *fiber.Ctx) (month, year int, err error) {
	monthStr, yearStr := c.Params("month"), c.Params("year")
	if monthStr == "" {
		monthStr, yearStr = c.Query("month"), c.Query("year")
	}
	month, err = strconv.Atoi(monthStr)
	if err != nil {
		return 0, 0, domain.ErrInvalidPeriod
	}
	year, err = strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, domain.ErrInvalidPeriod
	}
	return month, year, nil
}

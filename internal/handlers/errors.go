package handlers

import (
	"errors"

	apperrors "coursepay/internal/errors"
	"coursepay/internal/logger"
	"coursepay/internal/repositories"
	"coursepay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

var statusByCode = map[string]int{
	apperrors.ErrInvalidAmount.Code:        fiber.StatusBadRequest,
	apperrors.ErrReasonRequired.Code:       fiber.StatusBadRequest,
	apperrors.ErrInvalidCodeRequest.Code:   fiber.StatusBadRequest,
	apperrors.ErrInvalidCode.Code:          fiber.StatusBadRequest,
	apperrors.ErrCodeExpired.Code:          fiber.StatusBadRequest,
	apperrors.ErrForbidden.Code:            fiber.StatusForbidden,
	apperrors.ErrNotStudent.Code:           fiber.StatusForbidden,
	apperrors.ErrWalletNotFound.Code:       fiber.StatusNotFound,
	apperrors.ErrCourseNotFound.Code:       fiber.StatusNotFound,
	apperrors.ErrNoActivePurchase.Code:     fiber.StatusNotFound,
	apperrors.ErrAlreadyPurchased.Code:     fiber.StatusConflict,
	apperrors.ErrCodeAlreadyUsed.Code:      fiber.StatusConflict,
	apperrors.ErrCoursePriceLocked.Code:    fiber.StatusConflict,
	apperrors.ErrInsufficientBalance.Code:  fiber.StatusUnprocessableEntity,
	apperrors.ErrBalanceLimitExceeded.Code: fiber.StatusUnprocessableEntity,
	apperrors.ErrDailyPurchaseLimit.Code:   fiber.StatusUnprocessableEntity,
	apperrors.ErrCourseNotPurchasable.Code: fiber.StatusUnprocessableEntity,
}

// respondError maps service errors to HTTP responses. Unexpected errors
// are logged and hidden from the client.
func respondError(c *fiber.Ctx, err error) error {
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		status, ok := statusByCode[de.Code]
		if !ok {
			status = fiber.StatusBadRequest
		}
		return utils.ErrorWithCode(c, status, de.Code, de.Message)
	}
	if repositories.IsRetryable(err) {
		logger.Warnf("%s %s: storage conflict: %v", c.Method(), c.Path(), err)
		return utils.ErrorWithCode(c, fiber.StatusServiceUnavailable, "CONFLICT", "request conflicted with another operation, please retry")
	}
	logger.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	return utils.InternalError(c, "internal server error")
}

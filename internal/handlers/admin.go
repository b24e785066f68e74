package handlers

import (
	"bytes"
	"context"
	"time"

	"coursepay/internal/models"
	"coursepay/internal/services/purchase"
	"coursepay/internal/services/rechargecode"
	"coursepay/internal/services/wallet"
	"coursepay/internal/utils"
	"coursepay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// AdminHandler serves the administrative ledger endpoints.
type AdminHandler struct {
	walletService   wallet.Service
	purchaseService *purchase.Service
	codeService     *rechargecode.Service
}

func NewAdminHandler(walletService wallet.Service, purchaseService *purchase.Service, codeService *rechargecode.Service) *AdminHandler {
	return &AdminHandler{
		walletService:   walletService,
		purchaseService: purchaseService,
		codeService:     codeService,
	}
}

// Amount rules live in wallet.ValidateAmount.
type walletOperationInput struct {
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=255"`
	Reason        string          `json:"reason" validate:"max=255"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=wallet fawry manual"`
}

type refundInput struct {
	StudentID uint   `json:"student_id" validate:"required"`
	CourseID  uint   `json:"course_id" validate:"required"`
	Reason    string `json:"reason" validate:"max=255"`
}

type generateCodesInput struct {
	Amount        decimal.Decimal `json:"amount"`
	Count         int             `json:"count" validate:"min=1,max=1000"`
	Prefix        string          `json:"prefix" validate:"max=20"`
	ExpiresInDays int             `json:"expires_in_days" validate:"gte=0,lte=3650"`
	Format        string          `json:"format" validate:"omitempty,oneof=json csv"`
}

func (h *AdminHandler) Deposit(c *fiber.Ctx) error {
	return h.walletOperation(c, h.walletService.Deposit)
}

func (h *AdminHandler) Withdraw(c *fiber.Ctx) error {
	return h.walletOperation(c, h.walletService.Withdraw)
}

func (h *AdminHandler) walletOperation(c *fiber.Ctx, op func(ctx context.Context, req wallet.OperationRequest) (*models.Transaction, error)) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	studentID, err := c.ParamsInt("student")
	if err != nil || studentID <= 0 {
		return utils.BadRequest(c, "invalid student id")
	}

	var input walletOperationInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if errs := validation.Struct(input); errs != nil {
		return utils.ValidationFailed(c, errs)
	}

	actor := claims.Actor()
	txn, err := op(c.UserContext(), wallet.OperationRequest{
		StudentID:     uint(studentID),
		Amount:        input.Amount,
		Description:   input.Description,
		Reason:        input.Reason,
		PaymentMethod: input.PaymentMethod,
		Actor:         &actor,
	})
	if err != nil {
		return respondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"transaction": txn})
}

func (h *AdminHandler) ManualDeposit(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	studentID, err := c.ParamsInt("student")
	if err != nil || studentID <= 0 {
		return utils.BadRequest(c, "invalid student id")
	}

	var input walletOperationInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if errs := validation.Struct(input); errs != nil {
		return utils.ValidationFailed(c, errs)
	}

	txn, err := h.walletService.ManualDeposit(c.UserContext(), claims.Actor(), uint(studentID), input.Amount, input.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"transaction": txn})
}

func (h *AdminHandler) RefundPurchase(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input refundInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if errs := validation.Struct(input); errs != nil {
		return utils.ValidationFailed(c, errs)
	}

	actor := claims.Actor()
	txn, err := h.purchaseService.RefundPurchase(c.UserContext(), input.StudentID, input.CourseID, input.Reason, &actor)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"message":     "Purchase refunded successfully",
		"transaction": txn,
	})
}

// GenerateCodes creates a batch of recharge codes. With format=csv the
// batch is returned as a CSV attachment.
func (h *AdminHandler) GenerateCodes(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input generateCodesInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if errs := validation.Struct(input); errs != nil {
		return utils.ValidationFailed(c, errs)
	}

	var expiresAt *time.Time
	if input.ExpiresInDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, input.ExpiresInDays)
		expiresAt = &t
	}

	actor := claims.Actor()
	codes, err := h.codeService.GenerateCodes(c.UserContext(), input.Amount, input.Count, input.Prefix, expiresAt, &actor)
	if err != nil {
		return respondError(c, err)
	}

	if input.Format == "csv" {
		var buf bytes.Buffer
		if err := rechargecode.ExportCSV(&buf, codes); err != nil {
			return respondError(c, err)
		}
		c.Attachment("recharge_codes.csv")
		return c.Status(fiber.StatusCreated).Send(buf.Bytes())
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"count": len(codes),
		"codes": codes,
	})
}

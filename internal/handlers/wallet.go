package handlers

import (
	"coursepay/internal/services/purchase"
	"coursepay/internal/services/rechargecode"
	"coursepay/internal/services/wallet"
	"coursepay/internal/utils"
	"coursepay/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// WalletHandler serves the student facing wallet endpoints.
type WalletHandler struct {
	walletService   wallet.Service
	purchaseService *purchase.Service
	codeService     *rechargecode.Service
}

func NewWalletHandler(walletService wallet.Service, purchaseService *purchase.Service, codeService *rechargecode.Service) *WalletHandler {
	return &WalletHandler{
		walletService:   walletService,
		purchaseService: purchaseService,
		codeService:     codeService,
	}
}

// GetWallet returns the balance and a page of transaction history.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	page := utils.GetPagination(c, wallet.DefaultHistoryLimit, wallet.MaxHistoryLimit)

	balance, err := h.walletService.GetBalance(c.UserContext(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	history, err := h.walletService.GetTransactionHistory(c.UserContext(), claims.UserID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"student_id":   claims.UserID,
		"balance":      balance.StringFixed(2),
		"transactions": history,
		"pagination":   page,
	})
}

func (h *WalletHandler) PurchaseCourse(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		CourseID uint `json:"course_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if errs := validation.Struct(input); errs != nil {
		return utils.ValidationFailed(c, errs)
	}

	result, err := h.purchaseService.PurchaseCourse(c.UserContext(), claims.Actor(), input.CourseID)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"purchase":    result.Purchase,
		"transaction": result.Transaction,
	})
}

func (h *WalletHandler) ListPurchases(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	purchases, err := h.purchaseService.ListPurchases(c.UserContext(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"purchases": purchases})
}

func (h *WalletHandler) RedeemCode(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	txn, err := h.codeService.RedeemCode(c.UserContext(), claims.Actor(), input.Code)
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":     "Recharge code redeemed successfully",
		"transaction": txn,
	})
}

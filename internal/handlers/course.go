package handlers

import (
	"coursepay/internal/models"
	"coursepay/internal/services/course"
	"coursepay/internal/utils"
	"coursepay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CourseHandler serves the catalog endpoints the ledger owns.
type CourseHandler struct {
	courseService *course.Service
}

func NewCourseHandler(courseService *course.Service) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

type createCourseInput struct {
	Title  string          `json:"title" validate:"required,max=200"`
	Price  decimal.Decimal `json:"price"`
	Status string          `json:"status" validate:"omitempty,oneof=draft published archived"`
}

type updatePriceInput struct {
	Price  decimal.Decimal `json:"price"`
	Reason string          `json:"reason" validate:"max=255"`
}

func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	courses, err := h.courseService.ListCourses(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"courses": courses})
}

func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var input createCourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if errs := validation.Struct(input); errs != nil {
		return utils.ValidationFailed(c, errs)
	}

	crs := &models.Course{Title: input.Title, Price: input.Price, Status: input.Status}
	if err := h.courseService.CreateCourse(c.UserContext(), crs); err != nil {
		return respondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"course": crs})
}

// UpdatePrice changes the price of a course that has never been sold.
func (h *CourseHandler) UpdatePrice(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return utils.BadRequest(c, "invalid course id")
	}

	var input updatePriceInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if errs := validation.Struct(input); errs != nil {
		return utils.ValidationFailed(c, errs)
	}

	crs, err := h.courseService.UpdateCoursePrice(c.UserContext(), claims.Actor(), uint(courseID), input.Price, input.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"course": crs})
}

func (h *CourseHandler) GetStats(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return utils.BadRequest(c, "invalid course id")
	}
	if _, err := h.courseService.GetCourse(c.UserContext(), nil, uint(courseID)); err != nil {
		return respondError(c, err)
	}

	stats, err := h.courseService.GetCourseStats(c.UserContext(), uint(courseID))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"stats": stats})
}

// RefreshStats recomputes the statistics of every course.
func (h *CourseHandler) RefreshStats(c *fiber.Ctx) error {
	refreshed, err := h.courseService.RefreshAllCourseStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"refreshed": refreshed})
}

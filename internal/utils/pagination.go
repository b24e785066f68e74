package utils

import (
	"github.com/gofiber/fiber/v2"
)

// Pagination holds pagination parameters.
type Pagination struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// GetPagination extracts page and limit from the query string. An explicit
// offset takes precedence over the page-derived one. Invalid values fall back
// to the defaults and limit is capped at maxLimit.
func GetPagination(c *fiber.Ctx, defaultLimit, maxLimit int) Pagination {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit := c.QueryInt("limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := (page - 1) * limit
	if raw := c.Query("offset"); raw != "" {
		if o := c.QueryInt("offset", -1); o >= 0 {
			offset = o
		}
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: offset,
	}
}

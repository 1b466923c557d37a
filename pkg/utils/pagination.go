package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetLimit reads the "limit" query parameter, falling back to def and capping
// at max.
func GetLimit(c echo.Context, def, max int) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// ParseID parses a positive numeric path parameter.
func ParseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

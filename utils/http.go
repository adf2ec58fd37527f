// utils/http.go - Response and request helpers for fiber handlers
package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// JSON sends data with the given status.
func JSON(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// JSONError sends {"success": false, "error": message}.
func JSONError(c *fiber.Ctx, status int, message string) error {
	return JSON(c, status, fiber.Map{
		"success": false,
		"error":   message,
	})
}

// JSONSuccess merges a fiber.Map into {"success": true} or nests anything
// else under "data".
func JSONSuccess(c *fiber.Ctx, status int, data interface{}) error {
	response := fiber.Map{"success": true}
	if dataMap, ok := data.(fiber.Map); ok {
		for k, v := range dataMap {
			response[k] = v
		}
	} else if data != nil {
		response["data"] = data
	}
	return JSON(c, status, response)
}

// ParamUint reads a positive integer route parameter.
func ParamUint(c *fiber.Ctx, key string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(key), 10, 64)
	if err != nil || n == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return uint(n), nil
}

// QueryInt reads an integer query parameter, falling back to def.
func QueryInt(c *fiber.Ctx, key string, def int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil {
		return n
	}
	return def
}

// QueryUintList parses "1,2,3". Invalid entries are skipped.
func QueryUintList(c *fiber.Ctx, key string) []uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	var out []uint
	for _, part := range strings.Split(raw, ",") {
		if n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64); err == nil && n > 0 {
			out = append(out, uint(n))
		}
	}
	return out
}

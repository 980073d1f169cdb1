package handlers

import "github.com/gofiber/fiber/v2"

// Me returns the current user information derived from the access token
func Me(c *fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	username := c.Locals("username").(string)
	return c.JSON(fiber.Map{
		"uid":      userID,
		"username": username,
	})
}

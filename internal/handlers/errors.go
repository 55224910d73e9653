package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// ErrorHandler renders errors returned from handlers and middleware in the
// same envelope the handlers use.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	var fe *fiber.Error
	var ce *types.CustomError
	switch {
	case errors.As(err, &ce):
		code = ce.Code
		message = ce.Message
		errorType = ce.Type
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	default:
		code = statusOf(err, fiber.StatusInternalServerError)
	}

	if code >= fiber.StatusInternalServerError {
		logger.L().WithError(err).WithField("url", c.OriginalURL()).Error("request failed")
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// NotFound is the last handler, answering routes nothing else matched
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   "[404] Resource Not Found",
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

package utils

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends data as JSON with the given status
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends the standard error envelope
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// NotFoundResponse sends a 404 error envelope
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// ActionResponse sends the envelope for a dispatched action. extra is merged
// into the top level of the body.
func ActionResponse(c *fiber.Ctx, status int, notification interface{}, errorType string, extra fiber.Map) error {
	ok := status < fiber.StatusBadRequest
	message := "Success"
	if !ok {
		message = "Failed"
	}
	body := fiber.Map{
		"status":       status,
		"message":      message,
		"ok":           ok,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"notification": notification,
	}
	if !ok {
		body["type"] = errorType
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// ErrorResponseStruct documents the error envelope
type ErrorResponseStruct struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Ok        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
}

// NotificationStruct documents the notification shown to the user
type NotificationStruct struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ActionResponseStruct documents the envelope of a dispatched action
type ActionResponseStruct struct {
	Status       int                    `json:"status"`
	Message      string                 `json:"message"`
	Ok           bool                   `json:"ok"`
	Timestamp    string                 `json:"timestamp"`
	URL          string                 `json:"url"`
	Type         string                 `json:"type,omitempty"`
	Notification NotificationStruct     `json:"notification"`
	ID           string                 `json:"id,omitempty"`
	Errors       map[string]string      `json:"errors,omitempty"`
	Fields       map[string]interface{} `json:"fields,omitempty"`
}

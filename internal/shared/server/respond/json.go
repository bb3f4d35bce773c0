package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse is the envelope for successful JSON responses.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSON writes a raw JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Success wraps data in the success envelope.
func Success(c *gin.Context, status int, data interface{}) {
	JSON(c, status, SuccessResponse{Success: true, Data: data})
}

// SuccessMessage wraps data and a human-readable message in the success envelope.
func SuccessMessage(c *gin.Context, status int, data interface{}, message string) {
	JSON(c, status, SuccessResponse{Success: true, Data: data, Message: message})
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, data interface{}) {
	Success(c, http.StatusOK, data)
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, data interface{}) {
	Success(c, http.StatusCreated, data)
}

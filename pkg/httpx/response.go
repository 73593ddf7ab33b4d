// Package httpx holds the JSON envelope every API response uses.
package httpx

import "github.com/gin-gonic/gin"

// ErrorBody is the machine-readable part of a failure response.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	// Details is optional extra context, e.g. the roles a route requires.
	Details any `json:"details,omitempty"`
}

type failure struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type success struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// Fail aborts the chain with {success:false, error:{message, code}}.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, failure{Error: ErrorBody{Message: message, Code: code}})
}

// FailWithDetails is Fail plus a details payload.
func FailWithDetails(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, failure{Error: ErrorBody{Message: message, Code: code, Details: details}})
}

// OK writes {success:true, data}.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, success{Success: true, Data: data})
}

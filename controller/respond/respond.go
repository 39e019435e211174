package respond

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeInvalidParam = 40000
	CodeNotFound     = 40400
	CodeTimeout      = 40800
	CodeConflict     = 40900
	CodeGone         = 41000
	CodeServerError  = 50000
	CodeBadGateway   = 50200
)

const startTimeKey = "respond_start_time"

// Response unified API response envelope
type Response struct {
	Code           int         `json:"code" example:"0"`
	Message        string      `json:"message" example:"success"`
	ProcessingTime int64       `json:"processingTime" example:"12"` // Milliseconds
	Data           interface{} `json:"data"`
}

// TimingMiddleware records the request start so responses can report processing time
func TimingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startTimeKey, time.Now())
		c.Next()
	}
}

func processingTime(c *gin.Context) int64 {
	v, ok := c.Get(startTimeKey)
	if !ok {
		return 0
	}
	start, ok := v.(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start).Milliseconds()
}

// Success 200 with data
func Success(c *gin.Context, data interface{}) {
	SuccessWithCode(c, CodeSuccess, data)
}

// SuccessWithCode 200 with a custom business code
func SuccessWithCode(c *gin.Context, code int, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:           code,
		Message:        "success",
		ProcessingTime: processingTime(c),
		Data:           data,
	})
}

// InvalidParam 400
func InvalidParam(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeInvalidParam, message, nil)
}

// NotFound 404
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message, nil)
}

// ServerError 500
func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeServerError, message, nil)
}

// Error writes an error envelope and aborts the chain
func Error(c *gin.Context, status, code int, message string, data interface{}) {
	c.AbortWithStatusJSON(status, Response{
		Code:           code,
		Message:        message,
		ProcessingTime: processingTime(c),
		Data:           data,
	})
}

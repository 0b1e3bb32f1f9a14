package router

import (
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

// ServiceResult is what every handler returns. Data is optional on both paths: successes
// render it as "data", errors as "details".
type ServiceResult struct {
	StatusCode int
	Data       any
	Message    string
}

type HandlerFunction func(*RequestContext) *ServiceResult

type RESTController struct {
	name         string
	mountPoint   string
	version      string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

// ToJSON renders {"message": ...} for successes and {"error": ...} for errors.
func (result *ServiceResult) ToJSON() gin.H {
	if result.IsError() {
		body := gin.H{"error": result.Message}
		if result.Data != nil {
			body["details"] = result.Data
		}
		return body
	}

	body := gin.H{"message": result.Message}
	if result.Data != nil {
		body["data"] = result.Data
	}
	return body
}

func (result *ServiceResult) IsSuccess() bool {
	return result.StatusCode >= 200 && result.StatusCode < 300
}

func (result *ServiceResult) IsError() bool {
	return result.StatusCode >= 400
}

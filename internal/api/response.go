package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope of every API answer.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	codeOK = iota
	codeBadRequest
	codeNotFound
	codeInternal
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: codeOK, Message: "success", Data: data})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Code: codeBadRequest, Message: message})
}

func notFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, Response{Code: codeNotFound, Message: message})
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Code: codeInternal, Message: "internal error"})
}

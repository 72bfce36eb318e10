package handlers

import "github.com/gin-gonic/gin"

type Failure struct {
	Error string `json:"error"`
}

type WebhookResponse struct {
	State string `json:"state"`
}

func ResponseFailure(ctx *gin.Context, err error) {
	ctx.AbortWithError(400, err)
}

func ResponseInternalError(ctx *gin.Context, err error) {
	ctx.AbortWithError(500, err)
}

func ResponseSuccess(ctx *gin.Context, data any) {
	ctx.JSON(200, data)
}

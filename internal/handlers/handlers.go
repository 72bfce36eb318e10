package handlers

import (
	"errors"
	"net/http"

	"github.com/gcottom/go-zaplog"
	"github.com/gin-gonic/gin"
	"github.com/telsabots/ytgrab/internal/bot"
	"github.com/telsabots/ytgrab/internal/telegram"
	"go.uber.org/zap"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type Handlers struct {
	Dispatcher    *bot.Dispatcher
	WebhookSecret string
}

func SetupRoutes(router *gin.Engine, dispatcher *bot.Dispatcher, webhookPath, webhookSecret string) {
	handler := &Handlers{Dispatcher: dispatcher, WebhookSecret: webhookSecret}
	router.GET("/healthz", handler.HealthCheck)
	router.POST(webhookPath, handler.Webhook)
}

func (h *Handlers) HealthCheck(ctx *gin.Context) {
	ctx.String(http.StatusOK, "OK")
}

// Webhook deserializes an inbound update and enqueues it; processing
// happens off the request goroutine.
func (h *Handlers) Webhook(ctx *gin.Context) {
	if h.WebhookSecret != "" && ctx.GetHeader(secretHeader) != h.WebhookSecret {
		zaplog.WarnC(ctx, "webhook request with bad secret token")
		ResponseFailure(ctx, errors.New("bad secret token"))
		return
	}
	var update telegram.Update
	if err := ctx.ShouldBindJSON(&update); err != nil {
		zaplog.WarnC(ctx, "failed to decode update", zap.Error(err))
		ResponseFailure(ctx, err)
		return
	}
	zaplog.InfoC(ctx, "update received", zap.Int64("update_id", update.UpdateID))
	h.Dispatcher.Enqueue(ctx, update)
	ResponseSuccess(ctx, WebhookResponse{State: "ACK"})
}

package bot

import (
	"context"
	"strings"
	"time"

	"github.com/gcottom/go-zaplog"
	"github.com/telsabots/ytgrab/internal"
	"github.com/telsabots/ytgrab/internal/telegram"
	"go.uber.org/zap"
)

// Dispatcher fans inbound updates out to the service, one goroutine per
// event. Events for different chats proceed fully in parallel; per-chat
// serialization happens on the session store's key locks.
type Dispatcher struct {
	Service *Service
	Updates chan telegram.Update
}

func NewDispatcher(service *Service, buffer int) *Dispatcher {
	return &Dispatcher{
		Service: service,
		Updates: make(chan telegram.Update, buffer),
	}
}

// Enqueue queues an update for processing, dropping it when the queue
// is saturated so the webhook never blocks.
func (d *Dispatcher) Enqueue(ctx context.Context, update telegram.Update) {
	select {
	case d.Updates <- update:
	default:
		zaplog.WarnC(ctx, "update queue full, dropping update", zap.Int64("update_id", update.UpdateID))
	}
}

// Run drains the queue. Meant to be started once from main.
func (d *Dispatcher) Run() {
	for {
		select {
		case update := <-d.Updates:
			ctx := zaplog.CreateAndInject(context.Background())
			go d.dispatch(ctx, update)
		default:
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.Message == nil || cq.From == nil {
			zaplog.WarnC(ctx, "callback without message or sender", zap.Int64("update_id", update.UpdateID))
			return
		}
		d.Service.HandleCallback(ctx, cq.Message.Chat.ID, cq.From.ID, cq.Message.MessageID, cq.Data, cq.From.Mention())
	case update.Message != nil:
		m := update.Message
		if m.From == nil {
			return
		}
		text := strings.TrimSpace(m.Text)
		switch {
		case strings.HasPrefix(text, "/"):
			command := strings.TrimPrefix(strings.Fields(text)[0], "/")
			command = strings.SplitN(command, "@", 2)[0]
			d.Service.HandleCommand(ctx, m.Chat.ID, m.From.ID, command, m.From.Mention())
		case internal.IsPlaylistURL(text):
			d.Service.HandlePlaylistURL(ctx, m.Chat.ID, m.From.ID, text)
		case internal.IsVideoURL(text):
			d.Service.HandleVideoURL(ctx, m.Chat.ID, m.From.ID, text)
		}
	}
}

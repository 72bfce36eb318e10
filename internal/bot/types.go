package bot

import (
	"context"
	"time"

	"github.com/telsabots/ytgrab/config"
	"github.com/telsabots/ytgrab/internal/media"
	"github.com/telsabots/ytgrab/internal/session"
	"github.com/telsabots/ytgrab/internal/telegram"
	"github.com/telsabots/ytgrab/internal/transfer"
)

// Keyboard aliases the transport's inline keyboard shape.
type Keyboard = telegram.Keyboard

// Button aliases the transport's inline button shape.
type Button = telegram.Button

// Transport is the chat side of the bot: message delivery, media
// uploads, and message lifecycle. Implementations must tolerate
// "message not found" style failures on edit and delete.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, kb Keyboard) (int, error)
	SendVideo(ctx context.Context, chatID int64, path string, size int64, caption string, kb Keyboard, onProgress transfer.ProgressFunc) error
	SendAudio(ctx context.Context, chatID int64, path string, size int64, caption string, duration time.Duration, kb Keyboard, onProgress transfer.ProgressFunc) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	IsChatMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// Resolver turns a URL into resolved metadata and variants.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*media.Metadata, error)
	ResolvePlaylist(ctx context.Context, url string) (media.PlaylistIter, error)
}

// Gate is the channel-membership predicate consumed by every entry
// point.
type Gate interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// Service handles every inbound chat event. One logical task per event;
// state transitions for a single conversation key are serialized through
// the store's key locks.
type Service struct {
	Store     *session.Store
	Resolver  Resolver
	Pipeline  *transfer.Pipeline
	Transport Transport
	Gate      Gate
	Config    *config.Config

	ResolveTimeout  time.Duration
	TransferTimeout time.Duration
}

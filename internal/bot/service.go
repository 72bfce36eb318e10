package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gcottom/go-zaplog"
	"github.com/gcottom/retry"
	"github.com/telsabots/ytgrab/internal/media"
	"github.com/telsabots/ytgrab/internal/progress"
	"github.com/telsabots/ytgrab/internal/session"
	"github.com/telsabots/ytgrab/internal/transfer"
	"go.uber.org/zap"
)

// guard is the uniform boundary around every entry point: errors are
// logged with context and converted to a short user-visible reply,
// never crossing into the dispatch loop.
func (s *Service) guard(ctx context.Context, chatID int64, op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			zaplog.ErrorC(ctx, "panic in handler", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Any("panic", r))
			s.reply(ctx, chatID, "❌ An error occurred. Please try again.")
		}
	}()
	if err := fn(); err != nil {
		zaplog.ErrorC(ctx, "handler error", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))
		s.reply(ctx, chatID, userMessage(err))
	}
}

func userMessage(err error) string {
	var rerr *ResolutionError
	var terr *transfer.Error
	switch {
	case errors.Is(err, ErrSessionExpired):
		return "❌ Session expired. Please send the YouTube URL again."
	case errors.As(err, &rerr):
		return "❌ Error processing YouTube URL. Please try again."
	case errors.As(err, &terr):
		return "❌ Download failed. Please try again."
	default:
		return "❌ An error occurred. Please try again."
	}
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) {
	if _, err := s.Transport.SendMessage(ctx, chatID, text, nil); err != nil {
		zaplog.ErrorC(ctx, "failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// deleteQuiet removes a message, tolerating "already deleted". Failures
// here never mask a successful transfer.
func (s *Service) deleteQuiet(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := s.Transport.DeleteMessage(ctx, chatID, messageID); err != nil {
		zaplog.WarnC(ctx, "failed to delete message", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(err))
	}
}

// admit runs the membership gate. A rejected user gets the join prompt;
// the caller stops processing.
func (s *Service) admit(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := s.Gate.IsMember(ctx, userID)
	if err != nil {
		return false, err
	}
	if member {
		return true, nil
	}
	zaplog.InfoC(ctx, "user not a member of required channels", zap.Int64("user_id", userID))
	if _, err = s.Transport.SendMessage(ctx, chatID, joinText, joinKeyboard(s.Config.RequiredChannels, s.Config.ChannelLinks)); err != nil {
		return false, &TransportError{Op: "send join prompt", Err: err}
	}
	return false, nil
}

// HandleCommand serves /start, /help, /about and /source, each
// independent of session state.
func (s *Service) HandleCommand(ctx context.Context, chatID, userID int64, command, mention string) {
	s.guard(ctx, chatID, "command "+command, func() error {
		ok, err := s.admit(ctx, chatID, userID)
		if err != nil || !ok {
			return err
		}
		var text string
		var kb Keyboard
		switch command {
		case "start":
			text, kb = fmt.Sprintf(startText, mention), startKeyboard()
		case "help":
			text, kb = helpText, helpKeyboard()
		case "about":
			text, kb = aboutText, aboutKeyboard()
		case "source":
			text, kb = sourceText, sourceKeyboard()
		default:
			return nil
		}
		if _, err = s.Transport.SendMessage(ctx, chatID, text, kb); err != nil {
			return &TransportError{Op: "send " + command, Err: err}
		}
		return nil
	})
}

// HandleVideoURL resolves a single-video URL, installs a fresh session
// for the chat (displacing and cancelling any prior one), and shows the
// quality prompt.
func (s *Service) HandleVideoURL(ctx context.Context, chatID, userID int64, url string) {
	s.guard(ctx, chatID, "video url", func() error {
		ok, err := s.admit(ctx, chatID, userID)
		if err != nil || !ok {
			return err
		}

		rctx, cancel := context.WithTimeout(ctx, s.ResolveTimeout)
		defer cancel()
		meta, err := s.resolveWithRetry(rctx, url)
		if err != nil {
			return &ResolutionError{Err: err}
		}

		lock := s.Store.KeyLock(chatID)
		lock.Lock()
		defer lock.Unlock()

		sess := session.New(chatID, meta)
		if prior := s.Store.Put(sess); prior != nil {
			zaplog.InfoC(ctx, "superseded prior session", zap.Int64("chat_id", chatID), zap.String("prior_state", string(prior.State())))
			s.deleteQuiet(ctx, chatID, prior.PromptMessageID)
		}
		msgID, err := s.Transport.SendPhoto(ctx, chatID, meta.Thumbnail, promptCaption(meta), qualityKeyboard(meta))
		if err != nil {
			return &TransportError{Op: "send quality prompt", Err: err}
		}
		sess.PromptMessageID = msgID
		return nil
	})
}

func (s *Service) resolveWithRetry(ctx context.Context, url string) (*media.Metadata, error) {
	res, err := retry.Retry(retry.NewAlgSimpleDefault(), 3, s.Resolver.Resolve, ctx, url)
	if err != nil {
		return nil, err
	}
	return res[0].(*media.Metadata), nil
}

// HandlePlaylistURL streams a playlist: each item is resolved lazily,
// downloaded in best quality, and relayed; per-item failures are logged
// and skipped.
func (s *Service) HandlePlaylistURL(ctx context.Context, chatID, userID int64, url string) {
	s.guard(ctx, chatID, "playlist url", func() error {
		ok, err := s.admit(ctx, chatID, userID)
		if err != nil || !ok {
			return err
		}

		rctx, cancel := context.WithTimeout(ctx, s.ResolveTimeout)
		iter, err := s.Resolver.ResolvePlaylist(rctx, url)
		cancel()
		if err != nil {
			return &ResolutionError{Err: err}
		}

		statusID, err := s.Transport.SendMessage(ctx, chatID,
			fmt.Sprintf("⏳ Processing playlist: %s with %d videos...", iter.Title(), iter.Len()), nil)
		if err != nil {
			return &TransportError{Op: "send playlist status", Err: err}
		}
		caption := fmt.Sprintf("⭕️ PLAYLIST: %s\n📥 DOWNLOADED\n✅ JOIN @TELSABOTS", iter.Title())

		for {
			ictx, icancel := context.WithTimeout(ctx, s.ResolveTimeout)
			meta, err := iter.Next(ictx)
			icancel()
			if err == io.EOF {
				break
			}
			if err != nil {
				zaplog.ErrorC(ctx, "failed to resolve playlist item", zap.Int64("chat_id", chatID), zap.Error(err))
				continue
			}
			if err = s.relayPlaylistItem(ctx, chatID, statusID, meta, caption); err != nil {
				zaplog.ErrorC(ctx, "failed to relay playlist item", zap.Int64("chat_id", chatID), zap.String("title", meta.Title), zap.Error(err))
				continue
			}
		}
		return nil
	})
}

func (s *Service) relayPlaylistItem(ctx context.Context, chatID int64, statusID int, meta *media.Metadata, caption string) error {
	variant, ok := meta.Variant(media.KindVideoHigh)
	if !ok {
		return ErrVariantUnavailable
	}
	tctx, cancel := context.WithTimeout(ctx, s.TransferTimeout)
	defer cancel()

	onProgress := s.progressEditor(tctx, chatID, statusID)
	return s.Pipeline.Run(tctx, transfer.Request{
		Key:        chatID,
		Variant:    variant,
		Title:      meta.Title,
		Author:     meta.Author,
		OnProgress: onProgress,
		Send: func(sctx context.Context, path string, size int64) error {
			return s.Transport.SendVideo(sctx, chatID, path, size, caption, nil, onProgress)
		},
	})
}

// progressEditor builds the throttled progress callback that edits the
// given status message. The download and upload phases report against
// different totals; a fresh tracker starts whenever the phase changes.
// Transport failures are logged and swallowed.
func (s *Service) progressEditor(ctx context.Context, chatID int64, statusID int) transfer.ProgressFunc {
	var tracker *progress.Tracker
	var trackerTotal, lastTransferred int64
	return func(transferred, total int64, elapsed time.Duration) {
		if statusID == 0 {
			return
		}
		if tracker == nil || total != trackerTotal || transferred < lastTransferred {
			tracker = progress.NewTracker(total)
			trackerTotal = total
		}
		lastTransferred = transferred
		report, emit := tracker.Sample(transferred)
		if !emit {
			return
		}
		text := uploadStartedText + "\n" + report.Text()
		if err := s.Transport.EditMessage(ctx, chatID, statusID, text, nil); err != nil {
			zaplog.WarnC(ctx, "failed to edit progress message", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

// HandleCallback dispatches one selection token. Navigation tokens are
// UI-only and never touch session state.
func (s *Service) HandleCallback(ctx context.Context, chatID, userID int64, messageID int, data, mention string) {
	s.guard(ctx, chatID, "callback "+data, func() error {
		switch data {
		case "home":
			return s.editPanel(ctx, chatID, messageID, fmt.Sprintf(startText, mention), startKeyboard())
		case "help":
			return s.editPanel(ctx, chatID, messageID, helpText, helpKeyboard())
		case "about":
			return s.editPanel(ctx, chatID, messageID, aboutText, aboutKeyboard())
		case "close":
			s.Store.Close(chatID)
			s.deleteQuiet(ctx, chatID, messageID)
			return nil
		case "high":
			return s.handleSelection(ctx, chatID, messageID, media.KindVideoHigh, "720P")
		case "360p":
			return s.handleSelection(ctx, chatID, messageID, media.KindVideoLow, "360P")
		case "audio":
			return s.handleSelection(ctx, chatID, messageID, media.KindAudio, "AUDIO")
		case "thumbnail":
			return s.handleThumbnail(ctx, chatID, messageID)
		default:
			zaplog.WarnC(ctx, "unknown callback token", zap.Int64("chat_id", chatID), zap.String("data", data))
			return nil
		}
	})
}

func (s *Service) editPanel(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	if err := s.Transport.EditMessage(ctx, chatID, messageID, text, kb); err != nil {
		// The panel message may already be gone; log and continue.
		zaplog.WarnC(ctx, "failed to edit panel", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(err))
	}
	return nil
}

// handleThumbnail short-circuits the pipeline: the thumbnail reference
// is relayed directly and the session completes.
func (s *Service) handleThumbnail(ctx context.Context, chatID int64, messageID int) error {
	lock := s.Store.KeyLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := s.Store.Get(chatID)
	if !ok || sess.State() != session.StateMetadataReady {
		return ErrSessionExpired
	}
	if _, err := s.Transport.SendPhoto(ctx, chatID, sess.Meta.Thumbnail, resultText, resultKeyboard()); err != nil {
		return &TransportError{Op: "send thumbnail", Err: err}
	}
	sess.Delivered()
	s.deleteQuiet(ctx, chatID, messageID)
	return nil
}

// handleSelection runs the transfer pipeline for one selected quality.
func (s *Service) handleSelection(ctx context.Context, chatID int64, messageID int, kind media.VariantKind, label string) error {
	lock := s.Store.KeyLock(chatID)
	lock.Lock()

	sess, ok := s.Store.Get(chatID)
	if !ok || sess.State().Terminal() {
		lock.Unlock()
		return ErrSessionExpired
	}
	variant, has := sess.Meta.Variant(kind)
	if !has {
		lock.Unlock()
		s.reply(ctx, chatID, fmt.Sprintf("❌ %s quality not available. Choose another quality.", label))
		return nil
	}

	// The transfer runs on a detached context so it outlives the webhook
	// request; supersession cancels it through the session.
	tctx, cancel := context.WithTimeout(zaplog.CreateAndInject(context.Background()), s.TransferTimeout)
	if err := sess.BeginTransfer(cancel); err != nil {
		lock.Unlock()
		cancel()
		s.reply(ctx, chatID, "⏳ A download is already in progress. Please wait.")
		return nil
	}
	lock.Unlock()
	defer cancel()

	statusID, err := s.Transport.SendMessage(ctx, chatID, uploadStartedText, nil)
	if err != nil {
		zaplog.WarnC(ctx, "failed to send progress message", zap.Int64("chat_id", chatID), zap.Error(err))
		statusID = 0
	}
	onProgress := s.progressEditor(tctx, chatID, statusID)

	err = s.Pipeline.Run(tctx, transfer.Request{
		Key:        chatID,
		Variant:    variant,
		Title:      sess.Meta.Title,
		Author:     sess.Meta.Author,
		Audio:      kind == media.KindAudio,
		OnArtifact: sess.SetArtifact,
		OnProgress: onProgress,
		Send: func(sctx context.Context, path string, size int64) error {
			if kind == media.KindAudio {
				return s.Transport.SendAudio(sctx, chatID, path, size, resultText, sess.Meta.Duration, resultKeyboard(), onProgress)
			}
			return s.Transport.SendVideo(sctx, chatID, path, size, resultText, resultKeyboard(), onProgress)
		},
	})
	sess.ClearArtifact()
	s.deleteQuiet(ctx, chatID, statusID)
	if err != nil {
		if tctx.Err() != nil && sess.State() == session.StateExpired {
			// Superseded mid-transfer; the new session owns the chat now.
			zaplog.InfoC(ctx, "transfer cancelled by supersession", zap.Int64("chat_id", chatID))
			return nil
		}
		sess.Failed()
		return err
	}
	sess.Delivered()
	s.deleteQuiet(ctx, chatID, messageID)
	return nil
}

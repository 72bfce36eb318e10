package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gcottom/go-zaplog"
	"github.com/telsabots/ytgrab/config"
	"github.com/telsabots/ytgrab/internal/media"
	"github.com/telsabots/ytgrab/internal/session"
	"github.com/telsabots/ytgrab/internal/transfer"
)

func testCtx() context.Context {
	return zaplog.CreateAndInject(context.Background())
}

type sentText struct {
	text string
	kb   Keyboard
}

type sentPhoto struct {
	photoURL string
	caption  string
	kb       Keyboard
}

type sentMedia struct {
	path     string
	size     int64
	caption  string
	existed  bool
	duration time.Duration
}

type fakeTransport struct {
	mu       sync.Mutex
	nextID   int
	messages []sentText
	edits    []sentText
	photos   []sentPhoto
	videos   []sentMedia
	audios   []sentMedia
	deleted  []int
	members  map[int64]bool

	videoErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{members: map[int64]bool{}}
}

func (f *fakeTransport) allocID() int {
	f.nextID++
	return f.nextID
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentText{text: text, kb: kb})
	return f.allocID(), nil
}

func (f *fakeTransport) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentText{text: text, kb: kb})
	return nil
}

func (f *fakeTransport) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, kb Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, sentPhoto{photoURL: photoURL, caption: caption, kb: kb})
	return f.allocID(), nil
}

func (f *fakeTransport) SendVideo(ctx context.Context, chatID int64, path string, size int64, caption string, kb Keyboard, onProgress transfer.ProgressFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.videoErr != nil {
		return f.videoErr
	}
	f.videos = append(f.videos, sentMedia{path: path, size: size, caption: caption, existed: fileExists(path)})
	return nil
}

func (f *fakeTransport) SendAudio(ctx context.Context, chatID int64, path string, size int64, caption string, duration time.Duration, kb Keyboard, onProgress transfer.ProgressFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audios = append(f.audios, sentMedia{path: path, size: size, caption: caption, existed: fileExists(path), duration: duration})
	return nil
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) IsChatMember(ctx context.Context, channel string, userID int64) (bool, error) {
	return f.members[userID], nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type fakeResolver struct {
	meta        *media.Metadata
	err         error
	calls       int
	playlist    media.PlaylistIter
	playlistErr error
}

func (r *fakeResolver) Resolve(ctx context.Context, url string) (*media.Metadata, error) {
	r.calls++
	return r.meta, r.err
}

func (r *fakeResolver) ResolvePlaylist(ctx context.Context, url string) (media.PlaylistIter, error) {
	return r.playlist, r.playlistErr
}

type staticSource struct {
	data []byte
}

func (s *staticSource) Stream(ctx context.Context) (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(s.data)), int64(len(s.data)), nil
}

func resolvedMeta() *media.Metadata {
	return &media.Metadata{
		ID:        "abc123",
		Title:     "Test Video",
		Author:    "Test Channel",
		ChannelID: "UCtest",
		Thumbnail: "https://img.example/abc123.jpg",
		Duration:  3 * time.Minute,
		Variants: map[media.VariantKind]media.Variant{
			media.KindVideoHigh: {Kind: media.KindVideoHigh, Size: 47518313, Source: &staticSource{data: []byte("high quality bytes")}},
			media.KindVideoLow:  {Kind: media.KindVideoLow, Size: 12687769, Source: &staticSource{data: []byte("low quality bytes")}},
			media.KindAudio:     {Kind: media.KindAudio, Size: 4068474, Source: &staticSource{data: []byte("audio bytes")}},
		},
	}
}

func newTestService(t *testing.T, transport *fakeTransport, resolver *fakeResolver) *Service {
	t.Helper()
	return &Service{
		Store:     session.NewStore(time.Hour),
		Resolver:  resolver,
		Pipeline:  transfer.NewPipeline(t.TempDir(), 2),
		Transport: transport,
		Gate:      &ChannelGate{Channels: []string{"megahubbots"}, Checker: transport},
		Config: &config.Config{
			RequiredChannels: []string{"megahubbots"},
			ChannelLinks:     []string{"https://t.me/megahubbots"},
		},
		ResolveTimeout:  5 * time.Second,
		TransferTimeout: time.Minute,
	}
}

func TestHandleVideoURL_SendsQualityPrompt(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true
	svc := newTestService(t, transport, &fakeResolver{meta: resolvedMeta()})

	svc.HandleVideoURL(testCtx(), 7, 9, "https://youtube.com/watch?v=abc123")

	if len(transport.photos) != 1 {
		t.Fatalf("sent %d photos, expected 1 quality prompt", len(transport.photos))
	}
	prompt := transport.photos[0]
	if prompt.photoURL != "https://img.example/abc123.jpg" {
		t.Errorf("prompt photo = %q", prompt.photoURL)
	}
	if !strings.Contains(prompt.caption, "Test Video") || !strings.Contains(prompt.caption, "Test Channel") {
		t.Errorf("prompt caption missing title/author: %q", prompt.caption)
	}
	var labels []string
	for _, row := range prompt.kb {
		for _, b := range row {
			labels = append(labels, b.Text)
		}
	}
	joined := strings.Join(labels, "|")
	for _, want := range []string{"720P ⭕️ 45.32MB", "360P ⭕️ 12.10MB", "AUDIO ⭕️ 3.88MB", "THUMBNAIL"} {
		if !strings.Contains(joined, want) {
			t.Errorf("quality keyboard missing %q in %q", want, joined)
		}
	}

	sess, ok := svc.Store.Get(7)
	if !ok || sess.State() != session.StateMetadataReady {
		t.Error("expected a MetadataReady session after URL handling")
	}
}

func TestHandleVideoURL_SupersedesPriorSession(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true
	svc := newTestService(t, transport, &fakeResolver{meta: resolvedMeta()})

	svc.HandleVideoURL(testCtx(), 7, 9, "https://youtube.com/watch?v=abc123")
	first, _ := svc.Store.Get(7)
	svc.HandleVideoURL(testCtx(), 7, 9, "https://youtube.com/watch?v=abc123")

	if first.State() != session.StateExpired {
		t.Errorf("prior session state = %v, expected %v", first.State(), session.StateExpired)
	}
	if svc.Store.Len() != 1 {
		t.Errorf("store holds %d sessions, expected 1", svc.Store.Len())
	}
	if first.PromptMessageID == 0 || !containsInt(transport.deleted, first.PromptMessageID) {
		t.Error("superseding should delete the stale quality prompt")
	}
}

func TestHandleCommand_NonMemberGetsJoinPrompt(t *testing.T) {
	transport := newFakeTransport()
	resolver := &fakeResolver{meta: resolvedMeta()}
	svc := newTestService(t, transport, resolver)

	svc.HandleCommand(testCtx(), 7, 9, "start", "@someone")

	if len(transport.messages) != 1 {
		t.Fatalf("sent %d messages, expected 1 join prompt", len(transport.messages))
	}
	msg := transport.messages[0]
	if !strings.Contains(msg.text, "must join") {
		t.Errorf("join prompt text = %q", msg.text)
	}
	if len(msg.kb) != 1 || msg.kb[0][0].URL != "https://t.me/megahubbots" {
		t.Errorf("join keyboard = %+v, expected one button per required channel", msg.kb)
	}

	// The gate also guards URL handling; no resolution may happen.
	svc.HandleVideoURL(testCtx(), 7, 9, "https://youtube.com/watch?v=abc123")
	if resolver.calls != 0 {
		t.Error("resolver invoked for a non-member")
	}
}

func TestHandleCommand_StartPanel(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true
	svc := newTestService(t, transport, &fakeResolver{})

	svc.HandleCommand(testCtx(), 7, 9, "start", "@someone")

	if len(transport.messages) != 1 {
		t.Fatalf("sent %d messages, expected 1", len(transport.messages))
	}
	if !strings.Contains(transport.messages[0].text, "@someone") {
		t.Errorf("start text should mention the user: %q", transport.messages[0].text)
	}
}

func TestHandleCallback_NoSession(t *testing.T) {
	transport := newFakeTransport()
	svc := newTestService(t, transport, &fakeResolver{})

	svc.HandleCallback(testCtx(), 7, 9, 11, "high", "@someone")

	if len(transport.messages) != 1 {
		t.Fatalf("sent %d messages, expected 1", len(transport.messages))
	}
	if !strings.Contains(transport.messages[0].text, "Session expired") {
		t.Errorf("reply = %q, expected session expired notice", transport.messages[0].text)
	}
}

func TestHandleCallback_VariantUnavailable(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true
	svc := newTestService(t, transport, &fakeResolver{})

	meta := resolvedMeta()
	delete(meta.Variants, media.KindAudio)
	svc.Store.Put(session.New(7, meta))

	svc.HandleCallback(testCtx(), 7, 9, 11, "audio", "@someone")

	if len(transport.messages) != 1 {
		t.Fatalf("sent %d messages, expected 1", len(transport.messages))
	}
	if !strings.Contains(transport.messages[0].text, "AUDIO quality not available") {
		t.Errorf("reply = %q, expected not-available notice", transport.messages[0].text)
	}
	sess, ok := svc.Store.Get(7)
	if !ok || sess.State() != session.StateMetadataReady {
		t.Error("session should remain MetadataReady after an unavailable selection")
	}
}

func TestHandleCallback_HighDeliversVideo(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true
	svc := newTestService(t, transport, &fakeResolver{})

	sess := session.New(7, resolvedMeta())
	sess.PromptMessageID = 11
	svc.Store.Put(sess)

	svc.HandleCallback(testCtx(), 7, 9, 11, "high", "@someone")

	if len(transport.videos) != 1 {
		t.Fatalf("sent %d videos, expected 1", len(transport.videos))
	}
	sent := transport.videos[0]
	if !sent.existed {
		t.Error("artifact did not exist at send time")
	}
	if sent.caption != resultText {
		t.Errorf("caption = %q, expected join promo", sent.caption)
	}
	if fileExists(sent.path) {
		t.Errorf("artifact %s still exists after delivery", sent.path)
	}
	if sess.State() != session.StateDelivered {
		t.Errorf("session state = %v, expected %v", sess.State(), session.StateDelivered)
	}
	if !containsInt(transport.deleted, 11) {
		t.Error("prompt message was not deleted after delivery")
	}
	if sess.Artifact() != "" {
		t.Error("session still references an artifact after delivery")
	}
}

func TestHandleCallback_SinkFailureMarksFailed(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true
	transport.videoErr = errors.New("upload rejected")
	svc := newTestService(t, transport, &fakeResolver{})

	sess := session.New(7, resolvedMeta())
	svc.Store.Put(sess)

	svc.HandleCallback(testCtx(), 7, 9, 11, "high", "@someone")

	if sess.State() != session.StateFailed {
		t.Errorf("session state = %v, expected %v", sess.State(), session.StateFailed)
	}
	var sawFailure bool
	for _, m := range transport.messages {
		if strings.Contains(m.text, "Download failed") {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Error("expected a user-visible failure reply")
	}
	if sess.Artifact() != "" {
		t.Error("session still references an artifact after failure")
	}
}

func TestHandleCallback_Thumbnail(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true
	svc := newTestService(t, transport, &fakeResolver{})

	sess := session.New(7, resolvedMeta())
	svc.Store.Put(sess)

	svc.HandleCallback(testCtx(), 7, 9, 11, "thumbnail", "@someone")

	if len(transport.photos) != 1 {
		t.Fatalf("sent %d photos, expected the thumbnail relay", len(transport.photos))
	}
	if transport.photos[0].photoURL != "https://img.example/abc123.jpg" {
		t.Errorf("thumbnail photo = %q", transport.photos[0].photoURL)
	}
	if sess.State() != session.StateDelivered {
		t.Errorf("session state = %v, expected %v", sess.State(), session.StateDelivered)
	}
	if !containsInt(transport.deleted, 11) {
		t.Error("prompt message was not deleted after thumbnail relay")
	}
}

func TestHandleCallback_CloseEndsSession(t *testing.T) {
	transport := newFakeTransport()
	svc := newTestService(t, transport, &fakeResolver{})
	svc.Store.Put(session.New(7, resolvedMeta()))

	svc.HandleCallback(testCtx(), 7, 9, 11, "close", "@someone")

	if _, ok := svc.Store.Get(7); ok {
		t.Error("close should remove the session")
	}
	if !containsInt(transport.deleted, 11) {
		t.Error("close should delete the panel message")
	}
}

func TestHandlePlaylistURL_ResolutionFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true
	svc := newTestService(t, transport, &fakeResolver{playlistErr: errors.New("unavailable")})

	svc.HandlePlaylistURL(testCtx(), 7, 9, "https://youtube.com/playlist?list=PLx")

	if len(transport.messages) != 1 {
		t.Fatalf("sent %d messages, expected 1 error reply", len(transport.messages))
	}
	if !strings.Contains(transport.messages[0].text, "Error processing YouTube URL") {
		t.Errorf("reply = %q", transport.messages[0].text)
	}
}

type fakePlaylist struct {
	title string
	items []*media.Metadata
	pos   int
}

func (p *fakePlaylist) Title() string { return p.title }
func (p *fakePlaylist) Len() int      { return len(p.items) }

func (p *fakePlaylist) Next(ctx context.Context) (*media.Metadata, error) {
	if p.pos >= len(p.items) {
		return nil, io.EOF
	}
	item := p.items[p.pos]
	p.pos++
	if item == nil {
		return nil, errors.New("item unavailable")
	}
	return item, nil
}

func TestHandlePlaylistURL_RelaysItemsAndSkipsFailures(t *testing.T) {
	transport := newFakeTransport()
	transport.members[9] = true

	playlist := &fakePlaylist{
		title: "My Mix",
		items: []*media.Metadata{resolvedMeta(), nil, resolvedMeta()},
	}
	svc := newTestService(t, transport, &fakeResolver{playlist: playlist})

	svc.HandlePlaylistURL(testCtx(), 7, 9, "https://youtube.com/playlist?list=PLx")

	if len(transport.messages) == 0 || !strings.Contains(transport.messages[0].text, "Processing playlist: My Mix with 3 videos") {
		t.Fatalf("missing playlist status message, got %+v", transport.messages)
	}
	if len(transport.videos) != 2 {
		t.Fatalf("relayed %d videos, expected 2 (failed item skipped)", len(transport.videos))
	}
	for _, v := range transport.videos {
		if !strings.Contains(v.caption, "PLAYLIST: My Mix") {
			t.Errorf("playlist caption = %q", v.caption)
		}
		if fileExists(v.path) {
			t.Errorf("playlist artifact %s still exists", v.path)
		}
	}
}

func TestProgressEditor_ResetsPerPhase(t *testing.T) {
	transport := newFakeTransport()
	svc := newTestService(t, transport, &fakeResolver{})

	cb := svc.progressEditor(testCtx(), 7, 5)

	// Download phase completes.
	cb(100, 100, 0)
	// Upload phase starts against a different total (converted artifact).
	cb(25, 50, 0)
	// Same total, rewound byte count: also a fresh phase.
	cb(10, 50, 0)

	if len(transport.edits) != 3 {
		t.Fatalf("recorded %d edits, expected 3", len(transport.edits))
	}
	for i, want := range []string{"100.00%", "50.00%", "20.00%"} {
		if !strings.Contains(transport.edits[i].text, want) {
			t.Errorf("edit %d = %q, expected percentage %s", i, transport.edits[i].text, want)
		}
	}
}

func containsInt(xs []int, want int) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

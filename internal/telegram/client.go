package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/telsabots/ytgrab/internal/transfer"
)

const defaultBaseURL = "https://api.telegram.org"

// Client is a minimal Bot API transport: message delivery, media
// uploads with progress, message lifecycle, and the chat-member check
// the gate consumes.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		Token:      token,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type sentMessage struct {
	MessageID int `json:"message_id"`
}

type chatMember struct {
	Status string `json:"status"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.BaseURL, c.Token, method)
}

func inlineKeyboard(kb Keyboard) map[string]any {
	rows := make([][]map[string]string, 0, len(kb))
	for _, row := range kb {
		buttons := make([]map[string]string, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, map[string]string{"text": b.Text, "url": b.URL})
			} else {
				buttons = append(buttons, map[string]string{"text": b.Text, "callback_data": b.Callback})
			}
		}
		rows = append(rows, buttons)
	}
	return map[string]any{"inline_keyboard": rows}
}

func (c *Client) postJSON(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeResponse(method, resp.Body)
}

func decodeResponse(method string, r io.Reader) (json.RawMessage, error) {
	var api apiResponse
	if err := json.NewDecoder(r).Decode(&api); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", method, err)
	}
	if !api.OK {
		return nil, fmt.Errorf("%s: %s", method, api.Description)
	}
	return api.Result, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error) {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if kb != nil {
		payload["reply_markup"] = inlineKeyboard(kb)
	}
	result, err := c.postJSON(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}
	var msg sentMessage
	if err = json.Unmarshal(result, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	if kb != nil {
		payload["reply_markup"] = inlineKeyboard(kb)
	}
	_, err := c.postJSON(ctx, "editMessageText", payload)
	return err
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, kb Keyboard) (int, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	if kb != nil {
		payload["reply_markup"] = inlineKeyboard(kb)
	}
	result, err := c.postJSON(ctx, "sendPhoto", payload)
	if err != nil {
		return 0, err
	}
	var msg sentMessage
	if err = json.Unmarshal(result, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) SendVideo(ctx context.Context, chatID int64, path string, size int64, caption string, kb Keyboard, onProgress transfer.ProgressFunc) error {
	params := map[string]string{
		"chat_id":            fmt.Sprint(chatID),
		"caption":            caption,
		"parse_mode":         "HTML",
		"supports_streaming": "true",
	}
	if err := addMarkupParam(params, kb); err != nil {
		return err
	}
	return c.upload(ctx, "sendVideo", "video", path, size, params, onProgress)
}

func (c *Client) SendAudio(ctx context.Context, chatID int64, path string, size int64, caption string, duration time.Duration, kb Keyboard, onProgress transfer.ProgressFunc) error {
	params := map[string]string{
		"chat_id":    fmt.Sprint(chatID),
		"caption":    caption,
		"parse_mode": "HTML",
		"duration":   fmt.Sprint(int(duration.Seconds())),
	}
	if err := addMarkupParam(params, kb); err != nil {
		return err
	}
	return c.upload(ctx, "sendAudio", "audio", path, size, params, onProgress)
}

func addMarkupParam(params map[string]string, kb Keyboard) error {
	if kb == nil {
		return nil
	}
	markup, err := json.Marshal(inlineKeyboard(kb))
	if err != nil {
		return err
	}
	params["reply_markup"] = string(markup)
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := c.postJSON(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	})
	return err
}

func (c *Client) IsChatMember(ctx context.Context, channel string, userID int64) (bool, error) {
	result, err := c.postJSON(ctx, "getChatMember", map[string]any{
		"chat_id": "@" + channel,
		"user_id": userID,
	})
	if err != nil {
		return false, err
	}
	var member chatMember
	if err = json.Unmarshal(result, &member); err != nil {
		return false, err
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// SetWebhook registers the ingress URL with the Bot API on startup.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	payload := map[string]any{"url": url}
	if secret != "" {
		payload["secret_token"] = secret
	}
	_, err := c.postJSON(ctx, "setWebhook", payload)
	return err
}

// upload streams a local file as a multipart form, reporting upload
// progress through onProgress at a bounded cadence.
func (c *Client) upload(ctx context.Context, method, field, path string, size int64, params map[string]string, onProgress transfer.ProgressFunc) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		for k, v := range params {
			if err := mw.WriteField(k, v); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		part, err := mw.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		f, err := os.Open(path)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		defer f.Close()
		reader := &progressReader{r: f, total: size, start: time.Now(), cb: onProgress}
		if _, err = io.Copy(part, reader); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = decodeResponse(method, resp.Body)
	return err
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	start time.Time
	last  time.Time
	cb    transfer.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.cb != nil && (err == io.EOF || time.Since(p.last) >= time.Second) {
		p.last = time.Now()
		p.cb(p.read, p.total, time.Since(p.start))
	}
	return n, err
}

package internal

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/gcottom/go-zaplog"
	"go.uber.org/zap"
)

const AudioFormat = "mp3"

var (
	videoURLRegex    = regexp.MustCompile(`(.*)youtube\.com/(.*)[&?]v=([^&]*)(.*)`)
	playlistURLRegex = regexp.MustCompile(`(.*)youtube\.com/(.*)[&?]list=([^&]*)(.*)`)
	shortURLRegex    = regexp.MustCompile(`youtu\.be/([^?&/]+)`)
)

// IsPlaylistURL reports whether text is a playlist link.
func IsPlaylistURL(text string) bool {
	return playlistURLRegex.MatchString(text)
}

// IsVideoURL reports whether text is a single video link. Playlist links
// also carry v= parameters, so playlist classification wins.
func IsVideoURL(text string) bool {
	if IsPlaylistURL(text) {
		return false
	}
	return videoURLRegex.MatchString(text) || shortURLRegex.MatchString(text)
}

// ConvertFile pipes raw audio bytes through ffmpeg and returns the mp3.
func ConvertFile(ctx context.Context, b []byte) ([]byte, error) {
	var args = []string{"-i", "pipe:0", "-c:a", "libmp3lame", "-b:a", "256k", "-f", "mp3", "-"}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	resultBuffer := bytes.NewBuffer(make([]byte, 0))

	cmd.Stdout = resultBuffer

	stdin, err := cmd.StdinPipe()
	if err != nil {
		zaplog.ErrorC(ctx, "conversion error", zap.Error(err))
		return nil, err
	}

	err = cmd.Start()
	if err != nil {
		zaplog.ErrorC(ctx, "conversion error", zap.Error(err))
		return nil, err
	}

	_, err = stdin.Write(b)
	if err != nil {
		zaplog.ErrorC(ctx, "conversion error", zap.Error(err))
		return nil, err
	}
	err = stdin.Close() // close the stdin, or ffmpeg will wait forever
	if err != nil {
		zaplog.ErrorC(ctx, "conversion error", zap.Error(err))
		return nil, err
	}
	err = cmd.Wait()
	if err != nil {
		zaplog.ErrorC(ctx, "conversion error", zap.Error(err))
		return nil, err
	}
	return resultBuffer.Bytes(), nil
}

// SanitizeFileName strips characters that are invalid in file names and
// bounds the length to what common filesystems accept.
func SanitizeFileName(name string) string {
	invalidChars := regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	safe := invalidChars.ReplaceAllString(name, "_")
	safe = strings.Trim(safe, " .")
	const maxLength = 128
	if len(safe) > maxLength {
		safe = safe[:maxLength]
	}
	return safe
}

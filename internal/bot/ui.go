package bot

import (
	"fmt"

	"github.com/telsabots/ytgrab/internal/format"
	"github.com/telsabots/ytgrab/internal/media"
)

const startText = `
HI %s,
I AM AN ADVANCED YOUTUBE DOWNLOADER BOT
I CAN DOWNLOAD YOUTUBE VIDEOS, THUMBNAILS
AND PLAYLIST VIDEOS....
ONE OF THE FASTEST YOUTUBE BOTS
I CAN DOWNLOAD 911MB VIDEOS
IN 1 MINUTE
MADE BY @TELSABOTS
`

const helpText = `
YOUTUBE VIDEO
SEND ANY URL.......
THEN SELECT AVAILABLE QUALITY

PLAYLIST
SEND ANY URL.....
THEN WAIT BOT WILL SEND
VIDEOS IN HIGH QUALITY...

MADE BY @TELSABOTS
`

const aboutText = `
🤖 <b>BOT: YOUTUBE DOWNLOADER</b>

🧑🏼‍💻 DEV: @ALLUADDICT

📢 <b>CHANNEL:</b> @TELSABOTS

📝 <b>Language:</b> <a href='https://go.dev/'>Go</a>

🤩 <b>SOURCE:</b> <a href='https://youtu.be/xyW5fe0AkXo'>CLICK HERE</a>
`

const sourceText = "<b>PRESS SOURCE BUTTON \nWATCH MY VIDEO AND\nCHECK DESCRIPTION FOR SOURCE CODE</b>"

const resultText = "**JOIN @TELSABOTS**"

const uploadStartedText = "<b>Upload STARTED...</b>"

const (
	channelURL = "https://telegram.me/TELSABOTS"
	devURL     = "https://telegram.me/alluaddict"
	sourceURL  = "https://youtu.be/xyW5fe0AkXo"
)

func startKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "📢CHANNEL📢", URL: channelURL},
			{Text: "🧑🏼‍💻DEV🧑🏼‍💻", URL: devURL},
		},
		{
			{Text: "🆘HELP🆘", Callback: "help"},
			{Text: "🤗ABOUT🤗", Callback: "about"},
			{Text: "🔐CLOSE🔐", Callback: "close"},
		},
	}
}

func helpKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "📢CHANNEL📢", URL: channelURL},
			{Text: "🧑🏼‍💻DEV🧑🏼‍💻", URL: devURL},
		},
		{
			{Text: "🏡HOME🏡", Callback: "home"},
			{Text: "🤗ABOUT🤗", Callback: "about"},
			{Text: "🔐CLOSE🔐", Callback: "close"},
		},
	}
}

func aboutKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "📢CHANNEL📢", URL: channelURL},
			{Text: "🧑🏼‍💻DEV🧑🏼‍💻", URL: devURL},
		},
		{
			{Text: "🏡HOME🏡", Callback: "home"},
			{Text: "🆘HELP🆘", Callback: "help"},
			{Text: "🔐CLOSE🔐", Callback: "close"},
		},
	}
}

func sourceKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "✅SOURCE✅", URL: sourceURL},
			{Text: "🧑🏼‍💻DEV🧑🏼‍💻", URL: devURL},
		},
		{
			{Text: "🔐CLOSE🔐", Callback: "close"},
		},
	}
}

func resultKeyboard() Keyboard {
	return Keyboard{
		{
			{Text: "📢CHANNEL📢", URL: channelURL},
			{Text: "🧑🏼‍💻DEV🧑🏼‍💻", URL: devURL},
		},
		{
			{Text: "🔐CLOSE🔐", Callback: "close"},
		},
	}
}

// variantSize renders a button size label, "N/A" when the kind was not
// resolved or its size is unknown.
func variantSize(meta *media.Metadata, kind media.VariantKind) string {
	v, ok := meta.Variant(kind)
	if !ok || v.Size <= 0 {
		return "N/A"
	}
	return format.Size(v.Size)
}

func qualityKeyboard(meta *media.Metadata) Keyboard {
	return Keyboard{
		{
			{Text: fmt.Sprintf("🎬720P ⭕️ %s", variantSize(meta, media.KindVideoHigh)), Callback: "high"},
			{Text: fmt.Sprintf("🎬360P ⭕️ %s", variantSize(meta, media.KindVideoLow)), Callback: "360p"},
		},
		{
			{Text: fmt.Sprintf("🎧AUDIO ⭕️ %s", variantSize(meta, media.KindAudio)), Callback: "audio"},
		},
		{
			{Text: "🖼THUMBNAIL🖼", Callback: "thumbnail"},
		},
	}
}

func promptCaption(meta *media.Metadata) string {
	return fmt.Sprintf("🎬 TITLE: %s\n\n📤 UPLOADED: %s\n\n📢 CHANNEL LINK: %s",
		meta.Title, meta.Author, meta.ChannelURL())
}

func joinKeyboard(channels, links []string) Keyboard {
	kb := make(Keyboard, 0, len(channels))
	for i, channel := range channels {
		kb = append(kb, []Button{{Text: fmt.Sprintf("Join %s", channel), URL: links[i]}})
	}
	return kb
}

const joinText = "🚨 You must join all required channels to use this bot.\n\n" +
	"After joining, type /start again."

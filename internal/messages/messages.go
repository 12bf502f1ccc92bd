package messages

import (
	"fmt"
	"strings"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func JoinPrompt(channelLink, groupLink string) string {
	return "🔒 <b>To use this bot, you must join our official channel and group.</b>\n\n" +
		fmt.Sprintf("📢 <b>Channel:</b> %s\n", Escape(channelLink)) +
		fmt.Sprintf("💬 <b>Group:</b> %s\n\n", Escape(groupLink)) +
		"After joining, tap <b>I've Joined</b> below."
}

// NotYetJoined is shown as a callback toast, which renders no HTML.
func NotYetJoined() string {
	return "❌ You haven't joined both the channel and the group yet!"
}

func Verified() string {
	return "✅ <b>You are now verified!</b>\nSend a video link to download."
}

func StartWelcome() string {
	return "📌 <b>Welcome!</b>\n\n" +
		"🎥 Send me a video link (YouTube, Instagram, Twitter, TikTok, Facebook) to download.\n\n" +
		"💡 Type /help for more info."
}

func Help() string {
	return "ℹ️ <b>How it works</b>\n\n" +
		"1. Send a media link (must start with http:// or https://).\n" +
		"2. Pick a quality: High, Low or Audio only.\n" +
		"3. Wait for the file.\n\n" +
		"One pending link at a time; sending a new link replaces the old one."
}

func InvalidURL() string {
	return "🚫 <b>That doesn't look like a link.</b>\nSend a URL starting with http:// or https://."
}

func ChooseQuality(title string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "your link"
	}
	return fmt.Sprintf("🎬 <b>%s</b>\n\nChoose a quality:", Escape(name))
}

func NoPendingLink() string {
	return "⚠️ <b>No pending link.</b>\nSend a media link first."
}

func QueueQueued(position int) string {
	return fmt.Sprintf("⏳ <b>In queue:</b> %d", position)
}

func QueueStarted() string {
	return "⚙️ <b>Download started...</b>"
}

func ErrorRestricted() string {
	return "🔐 <b>This content may be private or restricted.</b>\nI can't download it."
}

func ErrorDownloadFailed(cause string) string {
	cause = strings.TrimSpace(cause)
	if cause == "" {
		return "🚫 <b>Download failed.</b>\nPlease try again."
	}
	return "🚫 <b>Download failed.</b>\n<i>" + Escape(cause) + "</i>"
}

func ErrorDefault() string {
	return "🚫 <b>An error occurred.</b>\nPlease try again."
}

func ErrorUnknownCommand() string {
	return "❓ <b>Command not found.</b>\nTry /start or /help."
}

func ErrorUnsupportedMessageType() string {
	return "🤖 <b>I can't handle that.</b>\nSend a media link as plain text."
}

// Package reply maps the outcome of one event to its single reply text.
package reply

import (
	"errors"
	"strings"
	"unicode/utf8"

	"linenote/internal/classify"
	"linenote/internal/domain"
)

// MaxRunes is the LINE text message limit.
const MaxRunes = 5000

// Fixed messages.
const (
	MsgDenied              = "抱歉，您沒有使用此機器人的權限。"
	MsgUsage               = "用法：/a <想記錄的文字>\n例如：/a 明天下午三點和客戶開會"
	MsgExtractFailed       = "無法擷取這個網頁的內容，請稍後再試或改貼文字。"
	MsgSocialFailed        = "無法取得這則貼文的內容，貼文可能已刪除或設為私人。"
	MsgNotRecognized       = "無法辨識這段語音，請再錄一次。"
	MsgTranscribeOff       = "尚未設定語音轉文字功能，無法處理語音訊息。"
	MsgDescribeFailed      = "無法辨識這張圖片的內容。"
	MsgVisionOff           = "尚未設定圖片辨識功能，無法處理圖片訊息。"
	noteUploadFailed       = "（圖片上傳雲端失敗，僅保存描述）"
	noteUploadUnconfigured = "（未設定雲端儲存，圖片未備份）"
	labelSummary           = "📝 摘要"
	labelNoted             = "📝 已記錄"
	labelWeb               = "🌐 網頁摘要"
	labelTranscript        = "🎙️ 語音內容"
	labelTranscriptDigest  = "📌 重點整理"
	labelImage             = "🖼️ 圖片描述"
	labelImageLink         = "🔗 原圖"
	truncationMark         = "…"
)

// Outcome is everything the composer needs to know about one event.
type Outcome struct {
	Denied bool
	Route  classify.Route
	Result domain.ExtractionResult

	// ExtractErr is nil when Result has text. ErrUnavailable means the
	// capability is not configured.
	ExtractErr error
	Digest     string
	MediaLink  string
	UploadErr  error
}

// Compose returns the reply text for o. It never returns an empty string
// for a permitted event with a non-empty message.
func Compose(o Outcome) string {
	return truncate(compose(o), MaxRunes)
}

func compose(o Outcome) string {
	if o.Denied {
		return MsgDenied
	}

	switch o.Route.Target {
	case classify.TargetEcho:
		return o.Route.Text

	case classify.TargetSummarize:
		if strings.TrimSpace(o.Route.Text) == "" {
			return MsgUsage
		}
		if o.Digest != "" {
			return framed(labelSummary, o.Digest)
		}
		return framed(labelNoted, o.Result.Text)

	case classify.TargetSocialPost:
		if o.Result.Empty() {
			return MsgSocialFailed
		}
		return framed(socialLabel(o.Route.Platform), preferDigest(o))

	case classify.TargetWebPage:
		if o.Result.Empty() {
			return MsgExtractFailed
		}
		return framed(labelWeb, preferDigest(o))

	case classify.TargetTranscribe:
		if o.Result.Empty() {
			if errors.Is(o.ExtractErr, domain.ErrUnavailable) {
				return MsgTranscribeOff
			}
			return MsgNotRecognized
		}
		out := framed(labelTranscript, o.Result.Text)
		if o.Digest != "" {
			out += "\n\n" + framed(labelTranscriptDigest, o.Digest)
		}
		return out

	case classify.TargetDescribe:
		var out string
		switch {
		case !o.Result.Empty():
			out = framed(labelImage, o.Result.Text)
		case errors.Is(o.ExtractErr, domain.ErrUnavailable):
			out = MsgVisionOff
		default:
			out = MsgDescribeFailed
		}
		switch {
		case o.MediaLink != "":
			out += "\n\n" + labelImageLink + "：" + o.MediaLink
		case errors.Is(o.UploadErr, domain.ErrUnavailable):
			out += "\n\n" + noteUploadUnconfigured
		default:
			out += "\n\n" + noteUploadFailed
		}
		return out
	}
	return o.Route.Text
}

// preferDigest falls back to the extracted text when no digest was made.
func preferDigest(o Outcome) string {
	if o.Digest != "" {
		return o.Digest
	}
	return o.Result.Text
}

func socialLabel(p domain.Platform) string {
	return "💬 " + p.DisplayName() + " 貼文摘要"
}

func framed(label, body string) string {
	return label + "：\n" + body
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-utf8.RuneCountInString(truncationMark)]) + truncationMark
}

package extract

import (
	"net/http"
	"strings"
	"time"
)

// sniffImage guesses the image type from its magic bytes. LINE serves
// photos as JPEG, so that is the fallback.
func sniffImage(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

var now = time.Now

func nowIn(loc *time.Location) time.Time {
	return now().In(loc)
}

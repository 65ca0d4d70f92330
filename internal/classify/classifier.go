// Package classify decides how an inbound event is handled.
package classify

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"linenote/internal/domain"
)

// Target is the handling strategy chosen for an event.
type Target int

const (
	TargetEcho Target = iota
	TargetSummarize
	TargetSocialPost
	TargetWebPage
	TargetTranscribe
	TargetDescribe
)

func (t Target) String() string {
	switch t {
	case TargetEcho:
		return "echo"
	case TargetSummarize:
		return "summarize"
	case TargetSocialPost:
		return "social_post"
	case TargetWebPage:
		return "web_page"
	case TargetTranscribe:
		return "transcribe"
	case TargetDescribe:
		return "describe"
	default:
		return "unknown"
	}
}

// CommandPrefix routes the rest of a text message straight to the summarizer.
const CommandPrefix = "/a"

// Route is the classifier's decision for one event.
type Route struct {
	Target   Target
	Platform domain.Platform // set for TargetSocialPost
	URL      string          // canonical URL for link targets
	Text     string          // echo text, or the command argument
	MediaID  string          // message id for audio and image
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Classify maps an event to its route. It has no side effects.
func Classify(ev domain.InboundEvent) Route {
	switch p := ev.Payload.(type) {
	case domain.TextPayload:
		return classifyText(p.Text)
	case domain.AudioPayload:
		return Route{Target: TargetTranscribe, MediaID: p.MessageID}
	case domain.ImagePayload:
		return Route{Target: TargetDescribe, MediaID: p.MessageID}
	default:
		// Unknown payloads are never produced by the webhook decoder; echo
		// nothing rather than guess.
		return Route{Target: TargetEcho}
	}
}

func classifyText(text string) Route {
	if raw := urlPattern.FindString(text); raw != "" {
		link := CanonicalURL(raw)
		if platform := PlatformOf(link); platform != domain.PlatformNone {
			return Route{Target: TargetSocialPost, Platform: platform, URL: link, Text: text}
		}
		return Route{Target: TargetWebPage, URL: link, Text: text}
	}

	if arg, ok := commandArgument(text); ok {
		return Route{Target: TargetSummarize, Text: arg}
	}
	return Route{Target: TargetEcho, Text: text}
}

// commandArgument strips a leading "/a" (any case). The prefix must stand
// alone or be followed by whitespace, so "/about" is plain text.
func commandArgument(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len(CommandPrefix) || !strings.EqualFold(trimmed[:len(CommandPrefix)], CommandPrefix) {
		return "", false
	}
	rest := trimmed[len(CommandPrefix):]
	if rest != "" && !startsWithSpace(rest) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}

// domainAliases rewrites alternate spellings to the domain the scrapers expect.
var domainAliases = map[string]string{
	"threads.com": "threads.net",
}

// CanonicalURL rewrites aliased hosts (www. prefix kept) and otherwise
// returns raw unchanged.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.ToLower(u.Host)
	for alias, canonical := range domainAliases {
		if host == alias || strings.HasSuffix(host, "."+alias) {
			u.Host = strings.TrimSuffix(host, alias) + canonical
			return u.String()
		}
	}
	return raw
}

// platformKeywords is checked in order against the lower-cased host.
var platformKeywords = []struct {
	keyword  string
	platform domain.Platform
}{
	{"threads.net", domain.PlatformThreads},
	{"instagram.com", domain.PlatformInstagram},
	{"facebook.com", domain.PlatformFacebook},
	{"fb.watch", domain.PlatformFacebook},
}

// PlatformOf returns the social platform a URL belongs to, or PlatformNone.
func PlatformOf(link string) domain.Platform {
	host := link
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)
	for _, pk := range platformKeywords {
		if strings.Contains(host, pk.keyword) {
			return pk.platform
		}
	}
	return domain.PlatformNone
}

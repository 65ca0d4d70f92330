package security

import (
	"log/slog"
	"strings"

	"linenote/internal/metrics"
)

// Guard checks senders against an optional single-identity allow-list.
//
// With no allow-list configured every sender is permitted. That is the
// intended default for a personal bot whose webhook URL is not public, and
// it means anyone who learns the channel can write notes.
type Guard struct {
	allowed string
	logger  *slog.Logger
}

func NewGuard(allowedUserID string, logger *slog.Logger) *Guard {
	return &Guard{
		allowed: strings.TrimSpace(allowedUserID),
		logger:  logger,
	}
}

// Permit reports whether senderID may use the bot.
func (g *Guard) Permit(senderID string) bool {
	if g.allowed == "" {
		return true
	}
	if senderID == g.allowed {
		return true
	}
	g.logger.Warn("sender not on allow-list", "sender_id", senderID)
	metrics.AccessDenied.Inc()
	return false
}

// Restricted reports whether an allow-list is in effect.
func (g *Guard) Restricted() bool {
	return g.allowed != ""
}

package action

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mcdev12/werewolf/go/internal/models"
)

// Eligible returns the single action kind the player may submit, if any.
// The three rules are mutually exclusive by phase and role.
func Eligible(phase models.Phase, self *models.PlayerPrivate, alive bool) (models.ActionKind, bool) {
	if !alive {
		return "", false
	}

	switch phase {
	case models.PhaseNight:
		if self == nil {
			return "", false
		}
		switch {
		case self.Role == models.RoleWerewolf && self.CanKill:
			return models.ActionWerewolfVote, true
		case self.Role == models.RoleSeer && self.CanInvestigate:
			return models.ActionSeerInvestigate, true
		}
	case models.PhaseDay:
		return models.ActionDayVote, true
	}
	return "", false
}

// IsAlive resolves whether playerID is alive, preferring the private
// snapshot and falling back to the public roster.
func IsAlive(game *models.GameSnapshot, self *models.PlayerPrivate, playerID string) bool {
	if self != nil {
		return self.IsAlive
	}
	p, ok := game.Player(playerID)
	return ok && p.Alive
}

// ValidateChat trims message and checks it against the length bound.
func ValidateChat(message string) (string, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", ErrMessageEmpty
	}
	if n := utf8.RuneCountInString(trimmed); n > models.MaxChatMessageLength {
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrMessageTooLong, n, models.MaxChatMessageLength)
	}
	return trimmed, nil
}

package models

import "time"

// MaxChatMessageLength bounds a chat line, counted in characters.
const MaxChatMessageLength = 200

// ChatMessage is one chat line. Arrival order is display order.
type ChatMessage struct {
	Player  string     `json:"player"`
	Message string     `json:"message"`
	Time    *time.Time `json:"time,omitempty"`
}

// ChatLine is a chat message with the sender resolved to a display name.
type ChatLine struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ChatLines resolves recent chat against the roster, keeping arrival order.
func (g *GameSnapshot) ChatLines() []ChatLine {
	if g == nil {
		return nil
	}
	lines := make([]ChatLine, 0, len(g.RecentChat))
	for _, m := range g.RecentChat {
		lines = append(lines, ChatLine{Name: g.PlayerName(m.Player), Message: m.Message})
	}
	return lines
}

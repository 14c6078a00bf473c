package models

import (
	"time"
)

// Phase is the current stage of the turn cycle.
type Phase string

const (
	PhaseLobby Phase = "lobby"
	PhaseNight Phase = "night"
	PhaseDay   Phase = "day"
	PhaseEnded Phase = "ended"
)

// phaseAliases maps server spellings onto client phases. The server reports
// the pre-start phase as "setup".
var phaseAliases = map[string]Phase{
	"lobby": PhaseLobby,
	"setup": PhaseLobby,
	"night": PhaseNight,
	"day":   PhaseDay,
	"ended": PhaseEnded,
}

// ParsePhase converts a wire phase into a Phase.
func ParsePhase(s string) (Phase, bool) {
	p, ok := phaseAliases[s]
	return p, ok
}

// Faction is the winning side tag reported once a game has ended.
type Faction string

const (
	FactionWerewolves Faction = "werewolves"
	FactionVillagers  Faction = "villagers"
)

// MinPlayersToStart is the smallest roster the server accepts for a start.
const MinPlayersToStart = 3

// GameSnapshot is an immutable public view of a game as returned by the
// server. Each poll produces a new snapshot that replaces the previous one.
type GameSnapshot struct {
	GameID     string         `json:"game_id,omitempty"`
	Phase      Phase          `json:"phase"`
	Started    bool           `json:"started"`
	Ended      bool           `json:"ended"`
	Players    []PlayerPublic `json:"players"`
	AliveCount int            `json:"alive_count"`
	DeadCount  int            `json:"dead_count"`
	PhaseEnd   *time.Time     `json:"phase_end,omitempty"`
	Winner     *Faction       `json:"winner,omitempty"`
	RecentChat []ChatMessage  `json:"recent_chat"`
}

// PhaseDeadline returns the absolute end of the current phase, if the server
// reported one.
func (g *GameSnapshot) PhaseDeadline() (time.Time, bool) {
	if g == nil || g.PhaseEnd == nil {
		return time.Time{}, false
	}
	return *g.PhaseEnd, true
}

// Player looks up a roster entry by id.
func (g *GameSnapshot) Player(id string) (PlayerPublic, bool) {
	if g == nil {
		return PlayerPublic{}, false
	}
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerPublic{}, false
}

// PlayerName resolves an id to a display name, "Unknown" when the id is not
// on the roster.
func (g *GameSnapshot) PlayerName(id string) string {
	if p, ok := g.Player(id); ok {
		return p.Name
	}
	return "Unknown"
}

// AliveTargets returns the alive players other than self, in roster order.
func (g *GameSnapshot) AliveTargets(self string) []PlayerPublic {
	if g == nil {
		return nil
	}
	targets := make([]PlayerPublic, 0, len(g.Players))
	for _, p := range g.Players {
		if p.Alive && p.ID != self {
			targets = append(targets, p)
		}
	}
	return targets
}

// CanStart reports whether the lobby has enough players to start.
func (g *GameSnapshot) CanStart() bool {
	return g != nil && g.Phase == PhaseLobby && len(g.Players) >= MinPlayersToStart
}

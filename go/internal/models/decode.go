package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// ErrMalformedPayload is returned when a server payload is missing required
// fields or carries values outside the known shape.
var ErrMalformedPayload = errors.New("malformed payload")

// Wire shapes use pointers so required fields can be told apart from zero
// values.

type wirePlayerPublic struct {
	ID           *string `json:"id"`
	Name         *string `json:"name"`
	Alive        *bool   `json:"alive"`
	Role         *string `json:"role"`
	Investigated *bool   `json:"investigated"`
}

type wireChatMessage struct {
	Player  *string  `json:"player"`
	Message *string  `json:"message"`
	Time    *float64 `json:"time"`
}

type wireGameSnapshot struct {
	GameID     string             `json:"game_id"`
	Phase      *string            `json:"phase"`
	Started    *bool              `json:"started"`
	Ended      *bool              `json:"ended"`
	Winner     *string            `json:"winner"`
	Players    []wirePlayerPublic `json:"players"`
	AliveCount *int               `json:"alive_count"`
	DeadCount  *int               `json:"dead_count"`
	PhaseEnd   *float64           `json:"phase_end"`
	RecentChat []wireChatMessage  `json:"recent_chat"`
}

type wireInvestigation struct {
	TargetID   *string  `json:"target_id"`
	TargetRole *string  `json:"target_role"`
	Timestamp  *float64 `json:"timestamp"`
}

type wirePlayerPrivate struct {
	Role                   *string             `json:"role"`
	IsAlive                *bool               `json:"is_alive"`
	CanKill                *bool               `json:"can_kill"`
	CanInvestigate         *bool               `json:"can_investigate"`
	Allies                 []Ally              `json:"allies"`
	PackVotes              map[string]string   `json:"pack_votes"`
	PreviousInvestigations []wireInvestigation `json:"previous_investigations"`
	Objective              string              `json:"objective"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

// EpochSecondsToTime converts fractional seconds since the Unix epoch.
func EpochSecondsToTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
}

// DecodeGameSnapshot parses and validates a public game snapshot.
func DecodeGameSnapshot(data []byte) (*GameSnapshot, error) {
	var w wireGameSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if w.Phase == nil {
		return nil, malformed("missing phase")
	}
	phase, ok := ParsePhase(*w.Phase)
	if !ok {
		return nil, malformed("unknown phase %q", *w.Phase)
	}
	if w.Players == nil {
		return nil, malformed("missing players")
	}

	snap := &GameSnapshot{
		GameID:  w.GameID,
		Phase:   phase,
		Players: make([]PlayerPublic, 0, len(w.Players)),
	}

	seen := make(map[string]struct{}, len(w.Players))
	alive := 0
	for i, wp := range w.Players {
		if wp.ID == nil || *wp.ID == "" {
			return nil, malformed("player %d: missing id", i)
		}
		if wp.Name == nil {
			return nil, malformed("player %s: missing name", *wp.ID)
		}
		if wp.Alive == nil {
			return nil, malformed("player %s: missing alive", *wp.ID)
		}
		if _, dup := seen[*wp.ID]; dup {
			return nil, malformed("duplicate player id %s", *wp.ID)
		}
		seen[*wp.ID] = struct{}{}

		p := PlayerPublic{
			ID:           *wp.ID,
			Name:         *wp.Name,
			Alive:        *wp.Alive,
			Investigated: wp.Investigated,
		}
		if wp.Role != nil && *wp.Role != "" {
			role := Role(*wp.Role)
			p.Role = &role
		}
		if p.Alive {
			alive++
		}
		snap.Players = append(snap.Players, p)
	}

	// Older servers omit the counts; derive them from the roster.
	snap.AliveCount = alive
	if w.AliveCount != nil {
		if *w.AliveCount < 0 || *w.AliveCount > len(snap.Players) {
			return nil, malformed("alive_count %d out of range", *w.AliveCount)
		}
		snap.AliveCount = *w.AliveCount
	}
	snap.DeadCount = len(snap.Players) - snap.AliveCount
	if w.DeadCount != nil {
		snap.DeadCount = *w.DeadCount
	}

	if w.Started != nil {
		snap.Started = *w.Started
	} else {
		snap.Started = phase != PhaseLobby
	}
	if w.Ended != nil {
		snap.Ended = *w.Ended
	} else {
		snap.Ended = phase == PhaseEnded
	}

	if w.PhaseEnd != nil {
		end := EpochSecondsToTime(*w.PhaseEnd)
		snap.PhaseEnd = &end
	}

	if w.Winner != nil && *w.Winner != "" {
		winner := Faction(*w.Winner)
		if winner != FactionWerewolves && winner != FactionVillagers {
			return nil, malformed("unknown winner %q", *w.Winner)
		}
		snap.Winner = &winner
	}

	snap.RecentChat = make([]ChatMessage, 0, len(w.RecentChat))
	for i, wc := range w.RecentChat {
		if wc.Player == nil || wc.Message == nil {
			return nil, malformed("chat message %d: missing player or message", i)
		}
		if utf8.RuneCountInString(*wc.Message) > MaxChatMessageLength {
			return nil, malformed("chat message %d exceeds %d characters", i, MaxChatMessageLength)
		}
		msg := ChatMessage{Player: *wc.Player, Message: *wc.Message}
		if wc.Time != nil {
			t := EpochSecondsToTime(*wc.Time)
			msg.Time = &t
		}
		snap.RecentChat = append(snap.RecentChat, msg)
	}

	return snap, nil
}

// DecodePlayerPrivate parses and validates a private player snapshot.
func DecodePlayerPrivate(data []byte) (*PlayerPrivate, error) {
	var w wirePlayerPrivate
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if w.Role == nil || *w.Role == "" {
		return nil, malformed("missing role")
	}
	if w.IsAlive == nil {
		return nil, malformed("missing is_alive")
	}

	p := &PlayerPrivate{
		Role:      Role(*w.Role),
		IsAlive:   *w.IsAlive,
		Allies:    w.Allies,
		PackVotes: w.PackVotes,
		Objective: w.Objective,
	}
	if w.CanKill != nil {
		p.CanKill = *w.CanKill
	}
	if w.CanInvestigate != nil {
		p.CanInvestigate = *w.CanInvestigate
	}

	for i, a := range p.Allies {
		if a.ID == "" {
			return nil, malformed("ally %d: missing id", i)
		}
	}

	p.PreviousInvestigations = make([]Investigation, 0, len(w.PreviousInvestigations))
	for i, wi := range w.PreviousInvestigations {
		if wi.TargetID == nil || *wi.TargetID == "" {
			return nil, malformed("investigation %d: missing target_id", i)
		}
		if wi.TargetRole == nil || *wi.TargetRole == "" {
			return nil, malformed("investigation %d: missing target_role", i)
		}
		if wi.Timestamp == nil {
			return nil, malformed("investigation %d: missing timestamp", i)
		}
		p.PreviousInvestigations = append(p.PreviousInvestigations, Investigation{
			TargetID:   *wi.TargetID,
			TargetRole: Role(*wi.TargetRole),
			Timestamp:  EpochSecondsToTime(*wi.Timestamp),
		})
	}

	return p, nil
}

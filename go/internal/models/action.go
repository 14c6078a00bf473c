package models

import (
	"errors"
	"fmt"
)

// ActionKind is the single kind of action a player may submit.
type ActionKind string

const (
	ActionWerewolfVote    ActionKind = "werewolf_vote"
	ActionSeerInvestigate ActionKind = "seer_investigate"
	ActionDayVote         ActionKind = "day_vote"
)

// InternalName is the short name used in logs and the CLI.
func (k ActionKind) InternalName() string {
	switch k {
	case ActionWerewolfVote:
		return "kill-vote"
	case ActionSeerInvestigate:
		return "inspect"
	case ActionDayVote:
		return "day-vote"
	default:
		return string(k)
	}
}

// IsNightAction reports whether the kind is submitted through the night
// action endpoint rather than the day vote endpoint.
func (k ActionKind) IsNightAction() bool {
	return k == ActionWerewolfVote || k == ActionSeerInvestigate
}

// ActionRequest is a player-initiated action bound for the server.
type ActionRequest struct {
	ActorID  string     `json:"player_id"`
	Kind     ActionKind `json:"action_type"`
	TargetID string     `json:"target_id"`
}

// Validate checks the request is complete before it goes on the wire.
func (r ActionRequest) Validate() error {
	if r.ActorID == "" {
		return errors.New("actor id is required")
	}
	if r.TargetID == "" {
		return errors.New("target id is required")
	}
	switch r.Kind {
	case ActionWerewolfVote, ActionSeerInvestigate, ActionDayVote:
		return nil
	default:
		return fmt.Errorf("unknown action kind %q", r.Kind)
	}
}

package models

import "time"

// Investigation is one seer result. The raw history is never mutated; the
// displayed ledger is re-derived from it.
type Investigation struct {
	TargetID   string    `json:"target_id"`
	TargetRole Role      `json:"target_role"`
	Timestamp  time.Time `json:"timestamp"`
}

// RevealsWerewolf reports whether the investigation exposed a werewolf.
func (i Investigation) RevealsWerewolf() bool {
	return i.TargetRole == RoleWerewolf
}

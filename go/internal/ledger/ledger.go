package ledger

import (
	"sort"
	"time"

	"github.com/mcdev12/werewolf/go/internal/models"
)

// Entry is the displayed result for one investigated target.
type Entry struct {
	TargetID  string      `json:"target_id"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	Timestamp time.Time   `json:"timestamp"`
}

// IsWerewolf reports whether the target was revealed as a werewolf.
func (e Entry) IsWerewolf() bool {
	return e.Role == models.RoleWerewolf
}

// Affiliation is the label shown to the seer.
func (e Entry) Affiliation() string {
	if e.IsWerewolf() {
		return "Werewolf"
	}
	return "Innocent"
}

// Ledger maps each investigated target to its latest result. It is rebuilt
// from scratch on every private snapshot and never patched in place.
type Ledger struct {
	entries map[string]Entry
	order   []string
}

// Build derives the ledger from the raw investigation history. For the same
// target the greatest timestamp wins; on equal timestamps the record that
// comes later in the input wins.
func Build(history []models.Investigation, game *models.GameSnapshot) Ledger {
	entries := make(map[string]Entry, len(history))
	for _, inv := range history {
		if cur, ok := entries[inv.TargetID]; ok && inv.Timestamp.Before(cur.Timestamp) {
			continue
		}
		entries[inv.TargetID] = Entry{
			TargetID:  inv.TargetID,
			Name:      game.PlayerName(inv.TargetID),
			Role:      inv.TargetRole,
			Timestamp: inv.Timestamp,
		}
	}

	order := make([]string, 0, len(entries))
	for id := range entries {
		order = append(order, id)
	}
	// Most recent first; ties across targets fall back to id for a stable order.
	sort.Slice(order, func(i, j int) bool {
		a, b := entries[order[i]], entries[order[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.TargetID < b.TargetID
	})

	return Ledger{entries: entries, order: order}
}

// Lookup returns the entry for targetID.
func (l Ledger) Lookup(targetID string) (Entry, bool) {
	e, ok := l.entries[targetID]
	return e, ok
}

// Entries returns entries ordered most recent first.
func (l Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id])
	}
	return out
}

func (l Ledger) Len() int {
	return len(l.order)
}

package models

// Role is a player's secret role. Only the roles the client reasons about
// are named; the server may report others.
type Role string

const (
	RoleWerewolf Role = "werewolf"
	RoleSeer     Role = "seer"
	RoleVillager Role = "villager"
)

// PlayerPublic is a roster entry visible to everyone.
type PlayerPublic struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Alive        bool   `json:"alive"`
	Role         *Role  `json:"role,omitempty"`         // populated once the game has ended
	Investigated *bool  `json:"investigated,omitempty"` // optional hint
}

// Ally is another member of the hidden faction.
type Ally struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayerPrivate is the per-player view only the requesting player receives.
type PlayerPrivate struct {
	Role                   Role              `json:"role"`
	IsAlive                bool              `json:"is_alive"`
	CanKill                bool              `json:"can_kill"`
	CanInvestigate         bool              `json:"can_investigate"`
	Allies                 []Ally            `json:"allies,omitempty"`
	PackVotes              map[string]string `json:"pack_votes,omitempty"` // ally id -> target id
	PreviousInvestigations []Investigation   `json:"previous_investigations,omitempty"`
	Objective              string            `json:"objective,omitempty"`
}

package werewolf_api_client

const (
	// Default base URL of a locally running game server
	DefaultBaseURL = "http://localhost:8888"

	// API Endpoints
	GamesEndpoint = "/games"

	// Per-game endpoint suffixes, appended to /games/{id}
	JoinSuffix   = "/join"
	StartSuffix  = "/start"
	StateSuffix  = "/state"
	PlayerSuffix = "/player/"
	VoteSuffix   = "/vote"
	ActionSuffix = "/action"
	ChatSuffix   = "/chat"

	// Query parameters
	PlayerIDParam = "player_id"
)

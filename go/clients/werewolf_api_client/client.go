package werewolf_api_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/mcdev12/werewolf/go/clients"
	"github.com/mcdev12/werewolf/go/internal/models"
)

// GameClient talks to the game server's HTTP/JSON surface.
type GameClient struct {
	*clients.BaseClient
}

// NewGameClient creates a client rooted at baseURL. A zero timeout keeps the
// base client default.
func NewGameClient(baseURL string, timeout time.Duration) *GameClient {
	client := &GameClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return client
}

type createGameResponse struct {
	GameID string `json:"game_id"`
}

type joinGameRequest struct {
	Name string `json:"name"`
}

type joinGameResponse struct {
	PlayerID string `json:"player_id"`
}

type voteRequest struct {
	PlayerID string `json:"player_id"`
	TargetID string `json:"target_id"`
}

type chatRequest struct {
	PlayerID string `json:"player_id"`
	Message  string `json:"message"`
}

func gamePath(gameID string) string {
	return GamesEndpoint + "/" + url.PathEscape(gameID)
}

// CreateGame creates a new game and returns its id.
func (c *GameClient) CreateGame(ctx context.Context) (string, error) {
	body, err := c.Post(ctx, GamesEndpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}

	var resp createGameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	if resp.GameID == "" {
		return "", fmt.Errorf("create game: %w: missing game_id", models.ErrMalformedPayload)
	}
	return resp.GameID, nil
}

// JoinGame joins gameID under name and returns the new player id.
func (c *GameClient) JoinGame(ctx context.Context, gameID, name string) (string, error) {
	body, err := c.Post(ctx, gamePath(gameID)+JoinSuffix, joinGameRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to join game: %w", err)
	}

	var resp joinGameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	if resp.PlayerID == "" {
		return "", fmt.Errorf("join game: %w: missing player_id", models.ErrMalformedPayload)
	}
	return resp.PlayerID, nil
}

// StartGame moves the game out of the lobby.
func (c *GameClient) StartGame(ctx context.Context, gameID string) error {
	if _, err := c.Post(ctx, gamePath(gameID)+StartSuffix, nil); err != nil {
		return fmt.Errorf("failed to start game: %w", err)
	}
	return nil
}

// GetGameState polls the public snapshot. playerID may be empty.
func (c *GameClient) GetGameState(ctx context.Context, gameID, playerID string) (*models.GameSnapshot, error) {
	endpoint := gamePath(gameID) + StateSuffix
	if playerID != "" {
		endpoint += "?" + url.Values{PlayerIDParam: {playerID}}.Encode()
	}

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	snap, err := models.DecodeGameSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode game state: %w", err)
	}
	return snap, nil
}

// GetPlayerInfo polls the private snapshot for playerID.
func (c *GameClient) GetPlayerInfo(ctx context.Context, gameID, playerID string) (*models.PlayerPrivate, error) {
	body, err := c.Get(ctx, gamePath(gameID)+PlayerSuffix+url.PathEscape(playerID))
	if err != nil {
		return nil, fmt.Errorf("failed to get player info: %w", err)
	}

	info, err := models.DecodePlayerPrivate(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode player info: %w", err)
	}
	return info, nil
}

// Vote casts a day elimination vote.
func (c *GameClient) Vote(ctx context.Context, gameID, playerID, targetID string) error {
	if _, err := c.Post(ctx, gamePath(gameID)+VoteSuffix, voteRequest{PlayerID: playerID, TargetID: targetID}); err != nil {
		return fmt.Errorf("failed to vote: %w", err)
	}
	return nil
}

// PerformAction submits a night role action.
func (c *GameClient) PerformAction(ctx context.Context, gameID string, req models.ActionRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid action: %w", err)
	}
	if _, err := c.Post(ctx, gamePath(gameID)+ActionSuffix, req); err != nil {
		return fmt.Errorf("failed to perform action: %w", err)
	}
	return nil
}

// SendChat posts a chat line.
func (c *GameClient) SendChat(ctx context.Context, gameID, playerID, message string) error {
	if _, err := c.Post(ctx, gamePath(gameID)+ChatSuffix, chatRequest{PlayerID: playerID, Message: message}); err != nil {
		return fmt.Errorf("failed to send chat: %w", err)
	}
	return nil
}

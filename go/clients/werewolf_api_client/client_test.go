package werewolf_api_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/werewolf/go/clients"
	"github.com/mcdev12/werewolf/go/internal/models"
)

// recordedRequest captures what the fake server saw.
type recordedRequest struct {
	Method    string
	Path      string
	Query     string
	Body      map[string]any
	RequestID string
}

func newTestServer(t *testing.T, status int, response string) (*GameClient, *[]recordedRequest) {
	t.Helper()

	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			RequestID: r.Header.Get(clients.RequestIDHeader),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		seen = append(seen, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return NewGameClient(srv.URL, 0), &seen
}

func TestCreateGame(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"game_id":"g-123"}`)

	id, err := client.CreateGame(context.Background())
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}
	if id != "g-123" {
		t.Errorf("Expected game id g-123, got %s", id)
	}

	req := (*seen)[0]
	if req.Method != http.MethodPost || req.Path != "/games" {
		t.Errorf("Expected POST /games, got %s %s", req.Method, req.Path)
	}
	if req.RequestID == "" {
		t.Error("Expected a request id header")
	}
}

func TestJoinGame(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"player_id":"p-1"}`)

	id, err := client.JoinGame(context.Background(), "g-123", "Alice")
	if err != nil {
		t.Fatalf("JoinGame() error = %v", err)
	}
	if id != "p-1" {
		t.Errorf("Expected player id p-1, got %s", id)
	}

	req := (*seen)[0]
	if req.Path != "/games/g-123/join" {
		t.Errorf("Expected /games/g-123/join, got %s", req.Path)
	}
	if req.Body["name"] != "Alice" {
		t.Errorf("Expected name Alice in body, got %v", req.Body["name"])
	}
}

func TestJoinGameMissingPlayerID(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{}`)

	_, err := client.JoinGame(context.Background(), "g-123", "Alice")
	if !errors.Is(err, models.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestGetGameState(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"phase":"day","players":[{"id":"p1","name":"A","alive":true}]}`)

	snap, err := client.GetGameState(context.Background(), "g-123", "p1")
	if err != nil {
		t.Fatalf("GetGameState() error = %v", err)
	}
	if snap.Phase != models.PhaseDay {
		t.Errorf("Expected phase day, got %s", snap.Phase)
	}

	req := (*seen)[0]
	if req.Path != "/games/g-123/state" || req.Query != "player_id=p1" {
		t.Errorf("Expected /games/g-123/state?player_id=p1, got %s?%s", req.Path, req.Query)
	}
}

func TestGetGameStateStatusError(t *testing.T) {
	client, _ := newTestServer(t, http.StatusNotFound, `{"error":"Game not found"}`)

	_, err := client.GetGameState(context.Background(), "nope", "")

	var statusErr *clients.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", statusErr.StatusCode)
	}
}

func TestGetGameStateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewGameClient(url, 0)
	_, err := client.GetGameState(context.Background(), "g-123", "")

	var transportErr *clients.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
}

func TestGetPlayerInfo(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"role":"werewolf","is_alive":true,"can_kill":true,"allies":[{"id":"p2","name":"B"}]}`)

	info, err := client.GetPlayerInfo(context.Background(), "g-123", "p1")
	if err != nil {
		t.Fatalf("GetPlayerInfo() error = %v", err)
	}
	if info.Role != models.RoleWerewolf || !info.CanKill || len(info.Allies) != 1 {
		t.Errorf("Unexpected player info: %+v", info)
	}
	if (*seen)[0].Path != "/games/g-123/player/p1" {
		t.Errorf("Expected /games/g-123/player/p1, got %s", (*seen)[0].Path)
	}
}

func TestVoteAndAction(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"status":"recorded"}`)
	ctx := context.Background()

	if err := client.Vote(ctx, "g", "p1", "p2"); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	err := client.PerformAction(ctx, "g", models.ActionRequest{
		ActorID:  "p1",
		Kind:     models.ActionSeerInvestigate,
		TargetID: "p3",
	})
	if err != nil {
		t.Fatalf("PerformAction() error = %v", err)
	}

	vote := (*seen)[0]
	if vote.Path != "/games/g/vote" || vote.Body["player_id"] != "p1" || vote.Body["target_id"] != "p2" {
		t.Errorf("Unexpected vote request: %+v", vote)
	}

	action := (*seen)[1]
	if action.Path != "/games/g/action" || action.Body["action_type"] != "seer_investigate" || action.Body["target_id"] != "p3" {
		t.Errorf("Unexpected action request: %+v", action)
	}
}

func TestPerformActionRejectsIncompleteRequest(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{}`)

	err := client.PerformAction(context.Background(), "g", models.ActionRequest{ActorID: "p1", Kind: models.ActionWerewolfVote})
	if err == nil {
		t.Fatal("Expected error for missing target")
	}
	if len(*seen) != 0 {
		t.Errorf("Expected no request to be sent, got %d", len(*seen))
	}
}

func TestSendChat(t *testing.T) {
	client, seen := newTestServer(t, http.StatusOK, `{"status":"sent"}`)

	if err := client.SendChat(context.Background(), "g", "p1", "hello"); err != nil {
		t.Fatalf("SendChat() error = %v", err)
	}
	req := (*seen)[0]
	if req.Path != "/games/g/chat" || req.Body["message"] != "hello" {
		t.Errorf("Unexpected chat request: %+v", req)
	}
}

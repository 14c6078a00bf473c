package action

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/werewolf/go/clients"
	"github.com/mcdev12/werewolf/go/internal/ledger"
	"github.com/mcdev12/werewolf/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Detail messages reported for failed player requests.
const (
	MessageNetworkError = "Network error"
	MessageSubmitFailed = "Failed to submit action"
	MessageChatFailed   = "Failed to send message"
	MessageStartFailed  = "Failed to start game"
)

// Submitter is the part of the game API the controller writes through.
type Submitter interface {
	StartGame(ctx context.Context, gameID string) error
	Vote(ctx context.Context, gameID, playerID, targetID string) error
	PerformAction(ctx context.Context, gameID string, req models.ActionRequest) error
	SendChat(ctx context.Context, gameID, playerID, message string) error
}

// ErrorReporter surfaces a recoverable failure next to the connection status.
type ErrorReporter interface {
	ReportError(message string)
}

// Completed describes the action submitted this phase.
type Completed struct {
	Kind     models.ActionKind `json:"type"`
	TargetID string            `json:"target_id"`
	Target   string            `json:"target"`
}

// Message is the confirmation shown once the action was accepted.
func (c Completed) Message() string {
	switch c.Kind {
	case models.ActionWerewolfVote:
		return fmt.Sprintf("You voted to kill %s", c.Target)
	case models.ActionSeerInvestigate:
		return fmt.Sprintf("You investigated %s", c.Target)
	default:
		return fmt.Sprintf("You voted to eliminate %s", c.Target)
	}
}

// State is what the player can currently do.
type State struct {
	Phase     models.Phase          `json:"phase"`
	Alive     bool                  `json:"alive"`
	Eligible  models.ActionKind     `json:"eligible_action,omitempty"`
	Targets   []models.PlayerPublic `json:"targets,omitempty"`
	Selected  string                `json:"selected,omitempty"`
	InFlight  bool                  `json:"in_flight"`
	Completed *Completed            `json:"completed,omitempty"`
	History   []ledger.Entry        `json:"history,omitempty"` // read-only, seers with no action
	CanStart  bool                  `json:"can_start"`
}

// Controller gates and submits the player's actions against the latest
// snapshots. Pending selection and completed state last until the phase
// changes.
type Controller struct {
	submitter Submitter
	reporter  ErrorReporter
	gameID    string
	playerID  string

	mu        sync.Mutex
	game      *models.GameSnapshot
	player    *models.PlayerPrivate
	ledger    ledger.Ledger
	selected  string
	inFlight  bool
	completed *Completed
}

func NewController(submitter Submitter, reporter ErrorReporter, gameID, playerID string) *Controller {
	return &Controller{
		submitter: submitter,
		reporter:  reporter,
		gameID:    gameID,
		playerID:  playerID,
	}
}

// Update feeds the newest snapshots. A nil player keeps the previous
// private snapshot.
func (c *Controller) Update(game *models.GameSnapshot, player *models.PlayerPrivate) {
	if game == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.game != nil && c.game.Phase != game.Phase {
		c.selected = ""
		c.completed = nil
		log.Debug().
			Str("game_id", c.gameID).
			Str("from", string(c.game.Phase)).
			Str("to", string(game.Phase)).
			Msg("phase changed, cleared pending action")
	}
	c.game = game

	if player != nil {
		c.player = player
	}
	if c.player != nil {
		c.ledger = ledger.Build(c.player.PreviousInvestigations, c.game)
	}
}

func (c *Controller) eligibleLocked() (models.ActionKind, bool) {
	if c.game == nil {
		return "", false
	}
	return Eligible(c.game.Phase, c.player, IsAlive(c.game, c.player, c.playerID))
}

func (c *Controller) targetLocked(targetID string) (models.PlayerPublic, bool) {
	for _, p := range c.game.AliveTargets(c.playerID) {
		if p.ID == targetID {
			return p, true
		}
	}
	return models.PlayerPublic{}, false
}

// Targets returns the alive players other than self.
func (c *Controller) Targets() []models.PlayerPublic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.AliveTargets(c.playerID)
}

// Ledger returns the investigation ledger derived from the latest private
// snapshot.
func (c *Controller) Ledger() ledger.Ledger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger
}

// Select records the target for the next submission.
func (c *Controller) Select(targetID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.eligibleLocked(); !ok {
		return ErrNotEligible
	}
	if c.completed != nil {
		return ErrCompleted
	}
	if c.inFlight {
		return ErrInFlight
	}
	if _, ok := c.targetLocked(targetID); !ok {
		return ErrStaleTarget
	}
	c.selected = targetID
	return nil
}

// Submit sends the selected target for the eligible action. The request is
// sent once; on failure the selection stays so the player can try again.
func (c *Controller) Submit(ctx context.Context) (Completed, error) {
	c.mu.Lock()
	kind, ok := c.eligibleLocked()
	switch {
	case !ok:
		c.mu.Unlock()
		return Completed{}, ErrNotEligible
	case c.completed != nil:
		c.mu.Unlock()
		return Completed{}, ErrCompleted
	case c.inFlight:
		c.mu.Unlock()
		return Completed{}, ErrInFlight
	case c.selected == "":
		c.mu.Unlock()
		return Completed{}, ErrNoTarget
	}
	target, ok := c.targetLocked(c.selected)
	if !ok {
		c.selected = ""
		c.mu.Unlock()
		return Completed{}, ErrStaleTarget
	}
	phase := c.game.Phase
	c.inFlight = true
	c.mu.Unlock()

	var err error
	if kind == models.ActionDayVote {
		err = c.submitter.Vote(ctx, c.gameID, c.playerID, target.ID)
	} else {
		err = c.submitter.PerformAction(ctx, c.gameID, models.ActionRequest{
			ActorID:  c.playerID,
			Kind:     kind,
			TargetID: target.ID,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		log.Error().
			Err(err).
			Str("game_id", c.gameID).
			Str("action", kind.InternalName()).
			Str("target_id", target.ID).
			Msg("failed to submit action")
		c.report(err, MessageSubmitFailed)
		return Completed{}, fmt.Errorf("failed to submit %s: %w", kind.InternalName(), err)
	}

	done := Completed{Kind: kind, TargetID: target.ID, Target: target.Name}
	// A phase change while the request was out already cleared the slate.
	if c.game.Phase == phase {
		c.completed = &done
		c.selected = ""
	}

	log.Info().
		Str("game_id", c.gameID).
		Str("action", kind.InternalName()).
		Str("target_id", target.ID).
		Msg("action submitted")

	return done, nil
}

// SendChat validates message and posts it.
func (c *Controller) SendChat(ctx context.Context, message string) error {
	if c.playerID == "" {
		return ErrNotJoined
	}
	trimmed, err := ValidateChat(message)
	if err != nil {
		log.Debug().Err(err).Str("game_id", c.gameID).Msg("chat message rejected")
		return err
	}

	if err := c.submitter.SendChat(ctx, c.gameID, c.playerID, trimmed); err != nil {
		log.Error().Err(err).Str("game_id", c.gameID).Msg("failed to send chat message")
		c.report(err, MessageChatFailed)
		return fmt.Errorf("failed to send chat: %w", err)
	}
	return nil
}

// CanStart reports whether the lobby has enough players to start.
func (c *Controller) CanStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.CanStart()
}

// StartGame moves the lobby into the first phase.
func (c *Controller) StartGame(ctx context.Context) error {
	if !c.CanStart() {
		return ErrCannotStart
	}
	if err := c.submitter.StartGame(ctx, c.gameID); err != nil {
		log.Error().Err(err).Str("game_id", c.gameID).Msg("failed to start game")
		c.report(err, MessageStartFailed)
		return fmt.Errorf("failed to start game: %w", err)
	}
	log.Info().Str("game_id", c.gameID).Msg("game started")
	return nil
}

// State returns a copy of what the player can currently do.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.game == nil {
		return State{}
	}

	alive := IsAlive(c.game, c.player, c.playerID)
	s := State{
		Phase:    c.game.Phase,
		Alive:    alive,
		InFlight: c.inFlight,
		CanStart: c.game.CanStart(),
	}
	if c.completed != nil {
		done := *c.completed
		s.Completed = &done
	}

	kind, ok := Eligible(c.game.Phase, c.player, alive)
	switch {
	case ok:
		s.Eligible = kind
		if s.Completed == nil {
			s.Targets = c.game.AliveTargets(c.playerID)
			s.Selected = c.selected
		}
	case c.player != nil && c.player.Role == models.RoleSeer && c.ledger.Len() > 0:
		s.History = c.ledger.Entries()
	}
	return s
}

func (c *Controller) report(err error, message string) {
	if c.reporter == nil {
		return
	}
	var transportErr *clients.TransportError
	if errors.As(err, &transportErr) {
		message = MessageNetworkError
	}
	c.reporter.ReportError(message)
}

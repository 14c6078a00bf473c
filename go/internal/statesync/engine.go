package statesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/werewolf/go/clients"
	"github.com/mcdev12/werewolf/go/internal/connection"
	"github.com/mcdev12/werewolf/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Messages shown next to the status badge.
const (
	MessageNetworkError = "Network error"
	MessageFetchFailed  = "Failed to fetch game state"
)

// ErrNoGame is returned when the engine is started without a game id.
var ErrNoGame = errors.New("no game id")

// SnapshotSource is the part of the game API the engine polls.
type SnapshotSource interface {
	GetGameState(ctx context.Context, gameID, playerID string) (*models.GameSnapshot, error)
	GetPlayerInfo(ctx context.Context, gameID, playerID string) (*models.PlayerPrivate, error)
}

// Session identifies what to poll. PlayerID is optional.
type Session struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id,omitempty"`
}

// View is the merged result of the newest settled poll cycle. Game and
// Player are shared, read-only snapshots.
type View struct {
	Seq        uint64                `json:"seq"`
	Session    Session               `json:"session"`
	Game       *models.GameSnapshot  `json:"game"`
	Player     *models.PlayerPrivate `json:"player,omitempty"`
	Connection connection.State      `json:"connection"`
}

type Config struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   2 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

type Option func(*Engine)

// WithClock replaces the real clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithPublisher registers a consumer of every settled view.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publishers = append(e.publishers, p) }
}

// cycle tags one poll so late results can be recognised.
type cycle struct {
	seq        uint64
	generation uint64
	session    Session
}

// Engine polls the public and private snapshots on a fixed interval and
// publishes the merged view. Cycles may overlap; each carries a sequence
// number and any outcome older than the newest settled one is discarded.
type Engine struct {
	source     SnapshotSource
	monitor    *connection.Monitor
	clock      clockwork.Clock
	config     Config
	publishers []Publisher
	instanceID string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	nextSeq atomic.Uint64

	stateMu    sync.RWMutex
	generation uint64
	session    Session
	settledSeq uint64
	game       *models.GameSnapshot
	player     *models.PlayerPrivate

	publishMu    sync.Mutex
	publishedSeq uint64
}

func NewEngine(source SnapshotSource, monitor *connection.Monitor, config Config, opts ...Option) *Engine {
	e := &Engine{
		source:     source,
		monitor:    monitor,
		clock:      clockwork.NewRealClock(),
		config:     config,
		instanceID: uuid.New().String()[:8],
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins polling for session. The first cycle runs immediately.
func (e *Engine) Start(ctx context.Context, session Session) error {
	if session.GameID == "" {
		return ErrNoGame
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("sync engine already running")
	}
	e.running = true
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	generation := e.beginSession(session)

	e.wg.Add(1)
	go e.run(runCtx, generation, session)

	log.Info().
		Str("instance", e.instanceID).
		Str("game_id", session.GameID).
		Str("player_id", session.PlayerID).
		Dur("poll_interval", e.config.PollInterval).
		Msg("state sync started")

	return nil
}

// Stop tears down the poll loop and waits for every in-flight cycle to
// return. Nothing from the stopped session is applied afterwards.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return fmt.Errorf("sync engine not running")
	}
	e.running = false
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()

	e.stateMu.Lock()
	e.generation++
	e.stateMu.Unlock()

	log.Info().Str("instance", e.instanceID).Msg("state sync stopped")
	return nil
}

// Restart switches to a new session, tearing down the old schedule first.
func (e *Engine) Restart(ctx context.Context, session Session) error {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	if running {
		if err := e.Stop(); err != nil {
			return err
		}
	}
	return e.Start(ctx, session)
}

// Running reports whether a poll loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Latest returns the newest settled view with the current connection state.
func (e *Engine) Latest() View {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	return View{
		Seq:        e.settledSeq,
		Session:    e.session,
		Game:       e.game,
		Player:     e.player,
		Connection: e.monitor.State(),
	}
}

// beginSession resets merged state for a new session and returns its
// generation.
func (e *Engine) beginSession(session Session) uint64 {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	e.generation++
	if e.session != session {
		e.game = nil
		e.player = nil
	}
	e.session = session
	e.settledSeq = 0
	e.nextSeq.Store(0)

	e.publishMu.Lock()
	e.publishedSeq = 0
	e.publishMu.Unlock()

	return e.generation
}

func (e *Engine) run(ctx context.Context, generation uint64, session Session) {
	defer e.wg.Done()

	ticker := e.clock.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	// Poll immediately on start
	e.startCycle(ctx, generation, session)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.startCycle(ctx, generation, session)
		}
	}
}

// startCycle launches one poll without waiting for earlier cycles.
func (e *Engine) startCycle(ctx context.Context, generation uint64, session Session) {
	if ctx.Err() != nil {
		return
	}

	c := cycle{
		seq:        e.nextSeq.Add(1),
		generation: generation,
		session:    session,
	}
	e.monitor.BeginPoll()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.poll(ctx, c)
	}()
}

// poll fetches both snapshots concurrently and settles the result.
func (e *Engine) poll(ctx context.Context, c cycle) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
	defer cancel()

	var (
		game      *models.GameSnapshot
		player    *models.PlayerPrivate
		playerErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		game, err = e.source.GetGameState(reqCtx, c.session.GameID, c.session.PlayerID)
		return err
	})
	if c.session.PlayerID != "" {
		g.Go(func() error {
			// Private failures never fail the cycle.
			player, playerErr = e.source.GetPlayerInfo(reqCtx, c.session.GameID, c.session.PlayerID)
			return nil
		})
	}
	gameErr := g.Wait()

	if ctx.Err() != nil {
		log.Debug().
			Str("instance", e.instanceID).
			Uint64("seq", c.seq).
			Msg("poll cycle cancelled, result dropped")
		return
	}

	e.settle(ctx, c, game, gameErr, player, playerErr)
}

func (e *Engine) settle(ctx context.Context, c cycle, game *models.GameSnapshot, gameErr error, player *models.PlayerPrivate, playerErr error) {
	e.stateMu.Lock()
	if c.generation != e.generation || c.seq <= e.settledSeq {
		settled := e.settledSeq
		e.stateMu.Unlock()
		log.Debug().
			Str("instance", e.instanceID).
			Uint64("seq", c.seq).
			Uint64("settled_seq", settled).
			Msg("discarding stale poll result")
		return
	}
	e.settledSeq = c.seq

	if gameErr != nil {
		message := classify(gameErr)
		e.monitor.MarkFailure(message)
		view := e.viewLocked()
		e.stateMu.Unlock()

		log.Warn().
			Err(gameErr).
			Str("game_id", c.session.GameID).
			Uint64("seq", c.seq).
			Str("message", message).
			Msg("failed to fetch game state")

		e.publish(ctx, view)
		return
	}

	e.game = game
	if playerErr != nil {
		log.Warn().
			Err(playerErr).
			Str("game_id", c.session.GameID).
			Str("player_id", c.session.PlayerID).
			Uint64("seq", c.seq).
			Msg("failed to fetch player info, keeping previous")
	} else if player != nil {
		e.player = player
	}
	e.monitor.MarkSuccess()
	view := e.viewLocked()
	e.stateMu.Unlock()

	log.Debug().
		Str("game_id", c.session.GameID).
		Uint64("seq", c.seq).
		Str("phase", string(game.Phase)).
		Msg("applied poll result")

	e.publish(ctx, view)
}

// publish hands view to every publisher, never going backwards in sequence.
func (e *Engine) publish(ctx context.Context, view View) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	if view.Seq <= e.publishedSeq {
		return
	}
	e.publishedSeq = view.Seq

	for _, p := range e.publishers {
		if err := p.Publish(ctx, view); err != nil {
			log.Error().Err(err).Uint64("seq", view.Seq).Msg("failed to publish view")
		}
	}
}

// classify maps a fetch error onto the message shown to the player.
func classify(err error) string {
	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) || errors.Is(err, models.ErrMalformedPayload) {
		return MessageFetchFailed
	}
	return MessageNetworkError
}

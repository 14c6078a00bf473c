package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/werewolf/go/clients/werewolf_api_client"
	"github.com/mcdev12/werewolf/go/internal/action"
	"github.com/mcdev12/werewolf/go/internal/config"
	"github.com/mcdev12/werewolf/go/internal/connection"
	"github.com/mcdev12/werewolf/go/internal/phaseclock"
	"github.com/mcdev12/werewolf/go/internal/session"
	"github.com/mcdev12/werewolf/go/internal/statesync"
	"github.com/rs/zerolog/log"
)

// Services holds the long-lived dependencies every command needs.
type Services struct {
	Config config.Config
	Client *werewolf_api_client.GameClient
	Store  *session.Store
	Clock  clockwork.Clock
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	store, err := session.Open(ctx, cfg.SessionPath)
	if err != nil {
		return nil, err
	}

	return &Services{
		Config: cfg,
		Client: werewolf_api_client.NewGameClient(cfg.BaseURL, cfg.RequestTimeout),
		Store:  store,
		Clock:  clockwork.NewRealClock(),
	}, nil
}

func (s *Services) Close() {
	if err := s.Store.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close session store")
	}
}

// loadSession returns the stored session; session.ErrNoSession reads as
// "no game found".
func (s *Services) loadSession(ctx context.Context) (session.Session, error) {
	return s.Store.Load(ctx)
}

// GameStack is everything wired around one game session.
type GameStack struct {
	Session     session.Session
	Monitor     *connection.Monitor
	Engine      *statesync.Engine
	Broadcaster *statesync.Broadcaster
	Phase       *phaseclock.Clock
	Controller  *action.Controller

	nats *statesync.NATSPublisher
}

func (s *Services) newGameStack(sess session.Session) (*GameStack, error) {
	monitor := connection.NewMonitor(s.Clock)
	broadcaster := statesync.NewBroadcaster()

	opts := []statesync.Option{
		statesync.WithClock(s.Clock),
		statesync.WithPublisher(broadcaster),
	}

	var natsPublisher *statesync.NATSPublisher
	if natsCfg, ok := s.Config.NATS(); ok {
		p, err := statesync.NewNATSPublisher(natsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up NATS publisher: %w", err)
		}
		natsPublisher = p
		opts = append(opts, statesync.WithPublisher(p))
		log.Info().Str("subject", p.Subject(sess.GameID)).Msg("mirroring views to NATS")
	}

	return &GameStack{
		Session:     sess,
		Monitor:     monitor,
		Engine:      statesync.NewEngine(s.Client, monitor, s.Config.Sync(), opts...),
		Broadcaster: broadcaster,
		Phase:       phaseclock.New(s.Clock, s.Config.Durations()),
		Controller:  action.NewController(s.Client, monitor, sess.GameID, sess.PlayerID),
		nats:        natsPublisher,
	}, nil
}

// Start begins polling.
func (g *GameStack) Start(ctx context.Context) error {
	return g.Engine.Start(ctx, statesync.Session{
		GameID:   g.Session.GameID,
		PlayerID: g.Session.PlayerID,
	})
}

// Apply feeds a settled view to the controller and phase clock.
func (g *GameStack) Apply(view statesync.View) {
	g.Controller.Update(view.Game, view.Player)
	g.Phase.UpdateFromSnapshot(view.Game)
}

func (g *GameStack) Close() {
	if g.Engine.Running() {
		if err := g.Engine.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop state sync")
		}
	}
	if g.nats != nil {
		if err := g.nats.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close NATS publisher")
		}
	}
}

package statesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/werewolf/go/clients"
	"github.com/mcdev12/werewolf/go/internal/connection"
	"github.com/mcdev12/werewolf/go/internal/models"
)

// fakeSource answers polls from scripted functions and counts calls.
type fakeSource struct {
	mu          sync.Mutex
	gameCalls   int
	playerCalls int
	game        func(ctx context.Context, call int) (*models.GameSnapshot, error)
	player      func(ctx context.Context, call int) (*models.PlayerPrivate, error)
}

func (f *fakeSource) GetGameState(ctx context.Context, gameID, playerID string) (*models.GameSnapshot, error) {
	f.mu.Lock()
	f.gameCalls++
	call := f.gameCalls
	f.mu.Unlock()
	return f.game(ctx, call)
}

func (f *fakeSource) GetPlayerInfo(ctx context.Context, gameID, playerID string) (*models.PlayerPrivate, error) {
	f.mu.Lock()
	f.playerCalls++
	call := f.playerCalls
	f.mu.Unlock()
	if f.player == nil {
		return nil, errors.New("no player script")
	}
	return f.player(ctx, call)
}

func (f *fakeSource) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gameCalls, f.playerCalls
}

func snapshot(phase models.Phase) *models.GameSnapshot {
	return &models.GameSnapshot{
		Phase: phase,
		Players: []models.PlayerPublic{
			{ID: "p1", Name: "Alice", Alive: true},
			{ID: "p2", Name: "Bob", Alive: true},
		},
		AliveCount: 2,
	}
}

func newTestEngine(src SnapshotSource, opts ...Option) (*Engine, *connection.Monitor) {
	monitor := connection.NewMonitor(clockwork.NewFakeClock())
	return NewEngine(src, monitor, DefaultConfig(), opts...), monitor
}

// pollAs runs a single cycle with an explicit sequence number.
func pollAs(e *Engine, seq uint64) {
	e.stateMu.RLock()
	c := cycle{seq: seq, generation: e.generation, session: e.session}
	e.stateMu.RUnlock()
	e.monitor.BeginPoll()
	e.poll(context.Background(), c)
}

func TestPollSuccess(t *testing.T) {
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			return snapshot(models.PhaseNight), nil
		},
		player: func(ctx context.Context, call int) (*models.PlayerPrivate, error) {
			return &models.PlayerPrivate{Role: models.RoleWerewolf, IsAlive: true, CanKill: true}, nil
		},
	}
	e, _ := newTestEngine(src)
	e.beginSession(Session{GameID: "g1", PlayerID: "p1"})

	pollAs(e, 1)

	view := e.Latest()
	if view.Connection.Status != connection.StatusConnected {
		t.Errorf("Expected connected, got %s", view.Connection.Status)
	}
	if view.Game == nil || view.Game.Phase != models.PhaseNight {
		t.Fatalf("Expected night snapshot, got %+v", view.Game)
	}
	if view.Player == nil || view.Player.Role != models.RoleWerewolf {
		t.Errorf("Expected werewolf private snapshot, got %+v", view.Player)
	}
	if view.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", view.Seq)
	}
}

func TestPollFailureKeepsPreviousSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"network error", &clients.TransportError{Err: errors.New("connection refused")}, MessageNetworkError},
		{"server rejected", &clients.StatusError{StatusCode: 500}, MessageFetchFailed},
		{"malformed payload", fmt.Errorf("decode: %w", models.ErrMalformedPayload), MessageFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := snapshot(models.PhaseDay)
			src := &fakeSource{
				game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
					if call == 1 {
						return first, nil
					}
					return nil, tt.err
				},
			}
			e, _ := newTestEngine(src)
			e.beginSession(Session{GameID: "g1"})

			pollAs(e, 1)
			pollAs(e, 2)

			view := e.Latest()
			if view.Connection.Status != connection.StatusDisconnected {
				t.Errorf("Expected disconnected, got %s", view.Connection.Status)
			}
			if view.Connection.Error != tt.message {
				t.Errorf("Expected error %q, got %q", tt.message, view.Connection.Error)
			}
			if view.Game != first {
				t.Error("Expected previous snapshot to be kept after failure")
			}
			if view.Connection.LastSuccess.IsZero() {
				t.Error("Expected last success from the first cycle to be kept")
			}
		})
	}
}

func TestPrivateFailureIsSwallowed(t *testing.T) {
	firstPlayer := &models.PlayerPrivate{Role: models.RoleSeer, IsAlive: true}
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			return snapshot(models.PhaseNight), nil
		},
		player: func(ctx context.Context, call int) (*models.PlayerPrivate, error) {
			if call == 1 {
				return firstPlayer, nil
			}
			return nil, errors.New("boom")
		},
	}
	e, _ := newTestEngine(src)
	e.beginSession(Session{GameID: "g1", PlayerID: "p1"})

	pollAs(e, 1)
	pollAs(e, 2)

	view := e.Latest()
	if view.Connection.Status != connection.StatusConnected {
		t.Errorf("Expected private failure to leave status connected, got %s", view.Connection.Status)
	}
	if view.Player != firstPlayer {
		t.Error("Expected stale private snapshot to be kept")
	}
	if view.Seq != 2 {
		t.Errorf("Expected public snapshot from cycle 2, got seq %d", view.Seq)
	}
}

func TestNoPlayerIDSkipsPrivateFetch(t *testing.T) {
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			return snapshot(models.PhaseLobby), nil
		},
	}
	e, _ := newTestEngine(src)
	e.beginSession(Session{GameID: "g1"})

	pollAs(e, 1)

	if _, playerCalls := src.calls(); playerCalls != 0 {
		t.Errorf("Expected no private fetch, got %d", playerCalls)
	}
	if e.Latest().Player != nil {
		t.Error("Expected no private snapshot")
	}
}

// queueCycles begins n cycles the way the poll loop does and returns them in
// start order.
func queueCycles(e *Engine, n int) []cycle {
	e.stateMu.RLock()
	generation, session := e.generation, e.session
	e.stateMu.RUnlock()

	cycles := make([]cycle, n)
	for i := range cycles {
		cycles[i] = cycle{seq: e.nextSeq.Add(1), generation: generation, session: session}
		e.monitor.BeginPoll()
	}
	return cycles
}

func TestStaleResultsAreDiscarded(t *testing.T) {
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			switch call {
			case 1:
				return snapshot(models.PhaseDay), nil
			case 2:
				return snapshot(models.PhaseNight), nil
			default:
				return nil, &clients.TransportError{Err: errors.New("late failure")}
			}
		},
	}
	e, _ := newTestEngine(src)
	e.beginSession(Session{GameID: "g1"})
	cycles := queueCycles(e, 3)

	// The newest cycle settles first, then the two older ones arrive late.
	ctx := context.Background()
	e.poll(ctx, cycles[2])
	e.poll(ctx, cycles[1])
	e.poll(ctx, cycles[0])

	view := e.Latest()
	if view.Seq != 3 {
		t.Errorf("Expected seq 3 to stay applied, got %d", view.Seq)
	}
	if view.Game == nil || view.Game.Phase != models.PhaseDay {
		t.Errorf("Expected day snapshot from cycle 3, got %+v", view.Game)
	}
	if view.Connection.Status != connection.StatusConnected {
		t.Errorf("Expected late failure to be ignored, got %s", view.Connection.Status)
	}
}

func TestInOrderCyclesPublishInOrder(t *testing.T) {
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			if call == 1 {
				return snapshot(models.PhaseNight), nil
			}
			return snapshot(models.PhaseDay), nil
		},
	}
	b := NewBroadcaster()
	views, unsubscribe := b.Subscribe()
	defer unsubscribe()

	e, _ := newTestEngine(src, WithPublisher(b))
	e.beginSession(Session{GameID: "g1"})
	cycles := queueCycles(e, 2)

	ctx := context.Background()
	e.poll(ctx, cycles[0])
	if v := receive(t, views); v.Seq != 1 || v.Game.Phase != models.PhaseNight {
		t.Fatalf("Expected night view at seq 1, got seq %d", v.Seq)
	}
	e.poll(ctx, cycles[1])
	if v := receive(t, views); v.Seq != 2 || v.Game.Phase != models.PhaseDay {
		t.Fatalf("Expected day view at seq 2, got seq %d", v.Seq)
	}
}

func TestOldGenerationIsDiscarded(t *testing.T) {
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			return snapshot(models.PhaseDay), nil
		},
	}
	e, monitor := newTestEngine(src)
	e.beginSession(Session{GameID: "g1"})
	old := queueCycles(e, 1)[0]

	e.beginSession(Session{GameID: "g2"})
	e.poll(context.Background(), old)

	if e.Latest().Game != nil {
		t.Error("Expected result from previous session to be discarded")
	}
	if got := monitor.State().Status; got != connection.StatusConnecting {
		t.Errorf("Expected status untouched, got %s", got)
	}
}

func receive(t *testing.T, ch <-chan View) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for view")
		return View{}
	}
}

func TestStartPollsImmediatelyAndOnEveryTick(t *testing.T) {
	fake := clockwork.NewFakeClock()
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			return snapshot(models.PhaseDay), nil
		},
	}
	b := NewBroadcaster()
	views, unsubscribe := b.Subscribe()
	defer unsubscribe()

	e, _ := newTestEngine(src, WithClock(fake), WithPublisher(b))
	ctx := context.Background()
	if err := e.Start(ctx, Session{GameID: "g1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if v := receive(t, views); v.Seq != 1 {
		t.Errorf("Expected immediate cycle seq 1, got %d", v.Seq)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := fake.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("BlockUntilContext() error = %v", err)
	}
	fake.Advance(DefaultConfig().PollInterval)

	if v := receive(t, views); v.Seq != 2 {
		t.Errorf("Expected tick cycle seq 2, got %d", v.Seq)
	}

	if err := e.Start(ctx, Session{GameID: "g1"}); err == nil {
		t.Error("Expected error starting an already running engine")
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	fake.Advance(10 * DefaultConfig().PollInterval)

	if gameCalls, _ := src.calls(); gameCalls != 2 {
		t.Errorf("Expected no polls after Stop, got %d calls", gameCalls)
	}
	if err := e.Stop(); err == nil {
		t.Error("Expected error stopping a stopped engine")
	}
}

func TestStopDropsInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			close(started)
			<-ctx.Done()
			return nil, &clients.TransportError{Err: ctx.Err()}
		},
	}
	b := NewBroadcaster()
	views, unsubscribe := b.Subscribe()
	defer unsubscribe()

	e, monitor := newTestEngine(src, WithClock(clockwork.NewFakeClock()), WithPublisher(b))
	if err := e.Start(context.Background(), Session{GameID: "g1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-started

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := monitor.State().Status; got != connection.StatusConnecting {
		t.Errorf("Expected cancelled cycle not to settle, got %s", got)
	}
	select {
	case v := <-views:
		t.Errorf("Expected no view after teardown, got seq %d", v.Seq)
	default:
	}
}

func TestRestartSwitchesSession(t *testing.T) {
	src := &fakeSource{
		game: func(ctx context.Context, call int) (*models.GameSnapshot, error) {
			return snapshot(models.PhaseDay), nil
		},
	}
	b := NewBroadcaster()
	views, unsubscribe := b.Subscribe()
	defer unsubscribe()

	e, _ := newTestEngine(src, WithClock(clockwork.NewFakeClock()), WithPublisher(b))
	ctx := context.Background()

	if err := e.Start(ctx, Session{GameID: "g1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	receive(t, views)

	if err := e.Restart(ctx, Session{GameID: "g2", PlayerID: "p9"}); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	v := receive(t, views)
	if v.Session.GameID != "g2" || v.Seq != 1 {
		t.Errorf("Expected first cycle of g2, got %+v", v.Session)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestStartRequiresGameID(t *testing.T) {
	e, _ := newTestEngine(&fakeSource{})
	if err := e.Start(context.Background(), Session{}); !errors.Is(err, ErrNoGame) {
		t.Errorf("Expected ErrNoGame, got %v", err)
	}
}

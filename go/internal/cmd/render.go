package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mcdev12/werewolf/go/internal/action"
	"github.com/mcdev12/werewolf/go/internal/connection"
	"github.com/mcdev12/werewolf/go/internal/models"
	"github.com/mcdev12/werewolf/go/internal/phaseclock"
	"github.com/mcdev12/werewolf/go/internal/statesync"
)

const maxChatLines = 5

// screen is everything the text renderer draws.
type screen struct {
	View  statesync.View
	Clock phaseclock.Reading
	Act   action.State
	Since string
}

func render(w io.Writer, s screen) {
	view := s.View
	fmt.Fprintf(w, "[%s] last update %s", view.Connection.Status, s.Since)
	if view.Connection.Error != "" {
		fmt.Fprintf(w, " (%s)", view.Connection.Error)
	}
	fmt.Fprintln(w)

	game := view.Game
	if game == nil {
		fmt.Fprintln(w, "waiting for game state...")
		return
	}

	fmt.Fprintf(w, "game %s  phase %s", view.Session.GameID, game.Phase)
	if game.Phase == models.PhaseNight || game.Phase == models.PhaseDay {
		fmt.Fprintf(w, "  %s left (%.0f%%)", phaseclock.Format(s.Clock.Remaining), s.Clock.Progress)
	}
	fmt.Fprintf(w, "  alive %d\n", game.AliveCount)

	renderRoster(w, game, view.Session.PlayerID)
	renderPlayer(w, game, view.Player)

	switch game.Phase {
	case models.PhaseLobby:
		if s.Act.CanStart {
			fmt.Fprintln(w, "ready to start: type 'start'")
		} else {
			fmt.Fprintf(w, "waiting for players (%d/%d)\n", len(game.Players), models.MinPlayersToStart)
		}
	case models.PhaseEnded:
		if outcome, ok := models.GameOutcome(game, view.Player); ok {
			fmt.Fprintf(w, "game over: %s win", outcome.Winner)
			if view.Player != nil {
				if outcome.PlayerWon {
					fmt.Fprint(w, " - you won")
				} else {
					fmt.Fprint(w, " - you lost")
				}
			}
			fmt.Fprintln(w)
		}
	default:
		renderAction(w, s.Act)
	}

	renderChat(w, game)
}

func renderRoster(w io.Writer, game *models.GameSnapshot, self string) {
	names := make([]string, 0, len(game.Players))
	for _, p := range game.Players {
		name := p.Name
		if p.ID == self {
			name += " (you)"
		}
		if !p.Alive {
			name += " [dead]"
		}
		if p.Role != nil {
			name += " " + string(*p.Role)
		}
		names = append(names, name)
	}
	fmt.Fprintf(w, "players: %s\n", strings.Join(names, ", "))
}

func renderPlayer(w io.Writer, game *models.GameSnapshot, self *models.PlayerPrivate) {
	if self == nil {
		return
	}
	fmt.Fprintf(w, "you are a %s", self.Role)
	if !self.IsAlive {
		fmt.Fprint(w, " (dead)")
	}
	fmt.Fprintln(w)

	if len(self.Allies) > 0 {
		allies := make([]string, 0, len(self.Allies))
		for _, a := range self.Allies {
			allies = append(allies, a.Name)
		}
		fmt.Fprintf(w, "pack: %s\n", strings.Join(allies, ", "))
	}
	for _, v := range models.PackVotes(game, self) {
		fmt.Fprintf(w, "  %s votes %s\n", v.AllyName, v.TargetName)
	}
}

func renderAction(w io.Writer, s action.State) {
	switch {
	case s.Completed != nil:
		fmt.Fprintln(w, s.Completed.Message())
	case s.Eligible != "":
		fmt.Fprintf(w, "action %s, targets:", s.Eligible.InternalName())
		for _, t := range s.Targets {
			marker := ""
			if t.ID == s.Selected {
				marker = "*"
			}
			fmt.Fprintf(w, " %s%s", marker, t.Name)
		}
		fmt.Fprintln(w)
		if s.InFlight {
			fmt.Fprintln(w, "submitting...")
		}
	case len(s.History) > 0:
		fmt.Fprintln(w, "investigations:")
		for _, e := range s.History {
			fmt.Fprintf(w, "  %s: %s\n", e.Name, e.Affiliation())
		}
	default:
		fmt.Fprintln(w, "no action available")
	}
}

func renderChat(w io.Writer, game *models.GameSnapshot) {
	lines := game.ChatLines()
	if len(lines) > maxChatLines {
		lines = lines[len(lines)-maxChatLines:]
	}
	for _, l := range lines {
		fmt.Fprintf(w, "<%s> %s\n", l.Name, l.Message)
	}
}

// summary is a one-line fingerprint used to skip redrawing identical screens.
func summary(s screen) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|", s.View.Connection.Status, s.View.Connection.Error)
	if g := s.View.Game; g != nil {
		fmt.Fprintf(&b, "%s|%d|%d|", g.Phase, g.AliveCount, len(g.RecentChat))
	}
	fmt.Fprintf(&b, "%s|%s|%v|%v", s.Act.Eligible, s.Act.Selected, s.Act.InFlight, s.Act.Completed != nil)
	return b.String()
}

// newScreen assembles a screen from the live game stack.
func newScreen(services *Services, stack *GameStack) screen {
	view := stack.Engine.Latest()
	return screen{
		View:  view,
		Clock: stack.Phase.Reading(),
		Act:   stack.Controller.State(),
		Since: connection.FormatSince(view.Connection.LastSuccess, services.Clock.Now()),
	}
}

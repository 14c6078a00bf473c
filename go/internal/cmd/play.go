package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mcdev12/werewolf/go/internal/action"
	"github.com/mcdev12/werewolf/go/internal/phaseclock"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const playHelp = `commands:
  select <name>   choose a target
  submit          submit the selected target
  chat <message>  post to chat
  start           start the game from the lobby
  status          redraw the screen
  home            forget this game and quit
  quit            leave without forgetting the game`

var errHome = errors.New("home")

func newPlayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Follow the current game live and act in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withServices(cmd, opts, func(_ context.Context, s *Services) error {
				sess, err := s.loadSession(ctx)
				if err != nil {
					return err
				}
				stack, err := s.newGameStack(sess)
				if err != nil {
					return err
				}
				defer stack.Close()

				err = play(ctx, s, stack, cmd.InOrStdin(), cmd.OutOrStdout())
				if errors.Is(err, errHome) {
					if err := s.Store.Clear(context.Background()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
					return nil
				}
				return err
			})
		},
	}
}

// play runs the live loop: settled views and clock ticks redraw the screen
// when it changes, and input lines drive the controller.
func play(ctx context.Context, s *Services, stack *GameStack, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	views, unsubscribe := stack.Broadcaster.Subscribe()
	defer unsubscribe()

	if err := stack.Start(ctx); err != nil {
		return err
	}
	startViewServer(ctx, s, stack)

	ticks := make(chan phaseclock.Reading, 1)
	go stack.Phase.Run(ctx, func(r phaseclock.Reading) {
		select {
		case ticks <- r:
		default:
		}
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintf(out, "playing game %s (type 'help' for commands)\n", stack.Session.GameID)

	var last string
	redraw := func(force bool) {
		sc := newScreen(s, stack)
		if sum := summary(sc); force || sum != last {
			last = sum
			render(out, sc)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case view, ok := <-views:
			if !ok {
				return nil
			}
			stack.Apply(view)
			redraw(false)
		case <-ticks:
			redraw(false)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := handleLine(ctx, stack, strings.TrimSpace(line), out)
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, errHome):
				return err
			case err != nil:
				fmt.Fprintf(out, "error: %v\n", err)
			}
			redraw(true)
		}
	}
}

// handleLine runs one input command. io.EOF means quit.
func handleLine(ctx context.Context, stack *GameStack, line string, out io.Writer) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "":
		return nil
	case "help":
		fmt.Fprintln(out, playHelp)
		return nil
	case "select":
		targetID, err := resolveTarget(stack.Controller, rest)
		if err != nil {
			return err
		}
		return stack.Controller.Select(targetID)
	case "submit":
		done, err := stack.Controller.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, done.Message())
		return nil
	case "chat":
		return stack.Controller.SendChat(ctx, rest)
	case "start":
		return stack.Controller.StartGame(ctx)
	case "status":
		return nil
	case "home":
		return errHome
	case "quit", "exit":
		return io.EOF
	default:
		log.Debug().Str("input", line).Msg("unknown command")
		return fmt.Errorf("unknown command %q", verb)
	}
}

// resolveTarget matches a target by id or case-insensitive name.
func resolveTarget(c *action.Controller, query string) (string, error) {
	if query == "" {
		return "", action.ErrNoTarget
	}
	for _, t := range c.Targets() {
		if t.ID == query || strings.EqualFold(t.Name, query) {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", action.ErrStaleTarget, query)
}

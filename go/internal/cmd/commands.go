package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/werewolf/go/internal/session"
	"github.com/mcdev12/werewolf/go/internal/statesync"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// withServices opens the shared services for the duration of fn.
func withServices(cmd *cobra.Command, opts *options, fn func(ctx context.Context, s *Services) error) error {
	ctx := cmd.Context()
	services, err := setupServices(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer services.Close()
	return fn(ctx, services)
}

func newCreateCmd(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new game, optionally joining it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, s *Services) error {
				gameID, err := s.Client.CreateGame(ctx)
				if err != nil {
					return fmt.Errorf("failed to create game: %w", err)
				}
				log.Info().Str("game_id", gameID).Msg("game created")

				sess := session.Session{GameID: gameID}
				if name != "" {
					playerID, err := s.Client.JoinGame(ctx, gameID, name)
					if err != nil {
						return fmt.Errorf("failed to join game: %w", err)
					}
					sess.PlayerID = playerID
					sess.PlayerName = name
				}
				if err := s.Store.Save(ctx, sess); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "created game %s\n", gameID)
				if sess.PlayerID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "joined as %s (%s)\n", name, sess.PlayerID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "join the new game under this name")
	return cmd
}

func newJoinCmd(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join <game-id>",
		Short: "Join an existing game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("--name is required")
			}
			return withServices(cmd, opts, func(ctx context.Context, s *Services) error {
				gameID := args[0]
				playerID, err := s.Client.JoinGame(ctx, gameID, name)
				if err != nil {
					return fmt.Errorf("failed to join game: %w", err)
				}

				sess := session.Session{GameID: gameID, PlayerID: playerID, PlayerName: name}
				if err := s.Store.Save(ctx, sess); err != nil {
					return err
				}

				log.Info().Str("game_id", gameID).Str("player_id", playerID).Msg("joined game")
				fmt.Fprintf(cmd.OutOrStdout(), "joined game %s as %s\n", gameID, name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	return cmd
}

func newStartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the current game once enough players have joined",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, s *Services) error {
				sess, err := s.loadSession(ctx)
				if err != nil {
					return err
				}
				stack, err := s.newGameStack(sess)
				if err != nil {
					return err
				}
				defer stack.Close()

				game, err := s.Client.GetGameState(ctx, sess.GameID, sess.PlayerID)
				if err != nil {
					return fmt.Errorf("failed to fetch game state: %w", err)
				}
				stack.Controller.Update(game, nil)

				if err := stack.Controller.StartGame(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "game started")
				return nil
			})
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current game state once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, s *Services) error {
				sess, err := s.loadSession(ctx)
				if err != nil {
					return err
				}
				stack, err := s.newGameStack(sess)
				if err != nil {
					return err
				}
				defer stack.Close()

				views, unsubscribe := stack.Broadcaster.Subscribe()
				defer unsubscribe()

				if err := stack.Start(ctx); err != nil {
					return err
				}

				view, err := firstView(ctx, views, s.Config.RequestTimeout+time.Second)
				if err != nil {
					return err
				}
				stack.Apply(view)
				render(cmd.OutOrStdout(), newScreen(s, stack))
				return nil
			})
		},
	}
}

// firstView waits for the first settled poll.
func firstView(ctx context.Context, views <-chan statesync.View, timeout time.Duration) (statesync.View, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case view := <-views:
		return view, nil
	case <-ctx.Done():
		return statesync.View{}, fmt.Errorf("no response from server: %w", ctx.Err())
	}
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Post a chat message to the current game",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, s *Services) error {
				sess, err := s.loadSession(ctx)
				if err != nil {
					return err
				}
				stack, err := s.newGameStack(sess)
				if err != nil {
					return err
				}
				defer stack.Close()

				return stack.Controller.SendChat(ctx, strings.Join(args, " "))
			})
		},
	}
}

func newHomeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Forget the current game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, opts, func(ctx context.Context, s *Services) error {
				if err := s.Store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
				return nil
			})
		},
	}
}

package main

import (
	"context"

	"github.com/mcdev12/werewolf/go/internal/viewserver"
	"github.com/rs/zerolog/log"
)

// startViewServer serves the game stack's view on the configured address
// until ctx is cancelled. It does nothing when no address is configured.
func startViewServer(ctx context.Context, services *Services, stack *GameStack) {
	addr := services.Config.ViewAddr
	if addr == "" {
		return
	}

	srv := viewserver.New(stack.Engine, stack.Controller, stack.Phase, services.Clock)
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("view server failed")
		}
	}()
}

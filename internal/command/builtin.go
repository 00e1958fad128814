package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tuokri/SteamKit/internal/steamid"
)

// RegisterBuiltins registers the console commands.
func RegisterBuiltins(r *Registry) (err error) {
	if err := r.Register(&Command{
		Name: "help",
		Help: "list commands",
		Handler: func(ctx *Context) error {
			for _, c := range r.List() {
				aliases := ""
				if len(c.Aliases) > 0 {
					aliases = " (aliases: " + strings.Join(c.Aliases, ", ") + ")"
				}
				ctx.Println(fmt.Sprintf("/%s - %s%s", c.Name, c.Help, aliases))
			}
			return nil
		},
	}); err != nil {
		return err
	}

	if err := r.Register(&Command{
		Name:    "quit",
		Aliases: []string{"exit"},
		Help:    "log off and exit",
		Handler: func(ctx *Context) error {
			if ctx.Quit != nil {
				ctx.Quit()
			}
			return nil
		},
	}); err != nil {
		return err
	}

	if err := r.Register(&Command{
		Name: "status",
		Help: "send the server status again",
		Handler: func(ctx *Context) error {
			return ctx.GameServer.SendStatus(ctx.Status)
		},
	}); err != nil {
		return err
	}

	if err := r.Register(&Command{
		Name: "logoff",
		Help: "log off without disconnecting",
		Handler: func(ctx *Context) error {
			return ctx.GameServer.LogOff()
		},
	}); err != nil {
		return err
	}

	if err := r.Register(&Command{
		Name: "stats",
		Help: "request user stats: /stats <steamid64> [gameid]",
		Handler: func(ctx *Context) error {
			if len(ctx.Args) < 1 {
				return fmt.Errorf("usage: /stats <steamid64> [gameid]")
			}
			id, err := strconv.ParseUint(ctx.Args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("steam id is not a number: %w", err)
			}
			gameID := uint64(ctx.Status.AppID)
			if len(ctx.Args) >= 2 {
				if gameID, err = strconv.ParseUint(ctx.Args[1], 10, 64); err != nil {
					return fmt.Errorf("game id is not a number: %w", err)
				}
			}
			job, err := ctx.GameServer.GetUserStats(gameID, steamid.ID(id))
			if err != nil {
				return err
			}
			ctx.Println("requested stats, job", job)
			return nil
		},
	}); err != nil {
		return err
	}

	if err := r.Register(&Command{
		Name:    "servers",
		Aliases: []string{"cm"},
		Help:    "list known CM servers",
		Handler: func(ctx *Context) error {
			all := ctx.Servers.All()
			if len(all) == 0 {
				ctx.Println("no servers")
				return nil
			}
			for _, s := range all {
				ctx.Println(s.String())
			}
			return nil
		},
	}); err != nil {
		return err
	}
	return nil
}

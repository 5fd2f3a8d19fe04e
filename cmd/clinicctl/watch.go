package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
)

// watchCmd follows queue events the server publishes to Redis.
func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print queue changes as they happen (needs the server's Redis)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			connectCtx, cancel := withTimeout(ctx, a.settings.Timeout)
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
			broker, err := redis.NewRedisBroker(connectCtx, redis.Config{Addr: a.settings.RedisAddr}, logger)
			cancel()
			if err != nil {
				return err
			}
			defer broker.Close()

			events, err := broker.Subscribe(ctx, model.QueueEventsChannel)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s on %s\n", model.QueueEventsChannel, a.settings.RedisAddr)

			out := cmd.OutOrStdout()
			for payload := range events {
				if a.output == "json" {
					fmt.Fprintln(out, string(payload))
					continue
				}
				var ev model.QueueEvent
				if err := json.Unmarshal(payload, &ev); err != nil {
					logger.Warn().Err(err).Msg("skipping malformed event")
					continue
				}
				fmt.Fprintf(out, "%s  %-12s entry=%s patient=%s status=%s priority=%d\n",
					ev.At.Local().Format(time.TimeOnly), ev.Type, ev.EntryID, ev.PatientID, ev.Status, ev.Priority)
			}
			return nil
		},
	}
}

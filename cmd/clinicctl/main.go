// Command clinicctl drives the clinic API from the shell.
//
// Settings come from the environment:
//
//	CLINICCTL_URL        API base URL (default http://localhost:8080)
//	CLINICCTL_API_KEY    API key sent as X-API-Key
//	CLINICCTL_TOKEN      session token, used when no API key is set
//	CLINICCTL_TIMEOUT    request timeout (default 15s)
//	CLINICCTL_REDIS_ADDR Redis address for "queue watch"
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/pkg/client"
)

type settings struct {
	URL       string        `envconfig:"URL" default:"http://localhost:8080"`
	APIKey    string        `envconfig:"API_KEY"`
	Token     string        `envconfig:"TOKEN"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"15s"`
	RedisAddr string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
}

type app struct {
	settings settings
	client   *client.Client
	output   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Command line client for the clinic API",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "output format: table or json")

	root.AddCommand(
		a.sessionCmd(),
		a.loginCmd(),
		a.patientsCmd(),
		a.queueCmd(),
		a.keysCmd(),
		a.dashboardCmd(),
		a.activityCmd(),
	)
	return root
}

func (a *app) init() error {
	if err := envconfig.Process("clinicctl", &a.settings); err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	c, err := client.New(client.Config{
		BaseURL: a.settings.URL,
		APIKey:  a.settings.APIKey,
		Token:   a.settings.Token,
		Timeout: a.settings.Timeout,
	})
	if err != nil {
		return err
	}
	a.client = c
	return nil
}

// Package cli implements the frontdesk commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/sonrisasaludable/frontdesk/internal/config"
	"github.com/sonrisasaludable/frontdesk/internal/console"
	"github.com/sonrisasaludable/frontdesk/internal/logging"
)

// RootCmd starts the interactive console chat.
var RootCmd = &cobra.Command{
	Use:           "frontdesk",
	Short:         "Front-desk assistant for Clínica Sonrisa Saludable",
	Long:          "Answers patient questions about hours, prices, insurance and contact details, either from the clinic fact sheet or from an indexed document base.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := logging.New(cfg.LogLevel)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	loop := &console.Loop{
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
		Responder: app.ai,
		SessionID: cfg.Assistant.SessionID,
		Banner:    console.Banner(app.facts.Name, cfg.Assistant.Mode),
		Log:       logging.Component(logger, "console"),
	}
	return loop.Run(ctx)
}

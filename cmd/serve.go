package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/findash/internal/dataset"
	"github.com/KaramelBytes/findash/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive sales and profit dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		opt := dataset.DefaultLoadOptions()
		opt.Sheet = c.SheetName

		start := time.Now()
		ds, err := dataset.Prepare(c.DataPath, opt)
		if err != nil {
			return err
		}
		logger.Info().
			Str("dataset", ds.Name).
			Int("rows", ds.Len()).
			Dur("took", time.Since(start)).
			Msg("dataset prepared")

		api, err := server.NewWebAPI(server.Config{
			Addr:            addr,
			ShutdownTimeout: c.ShutdownTimeout(),
			RateLimitRPS:    c.RateLimitRPS,
			RateLimitBurst:  c.RateLimitBurst,
			Dependencies: server.Dependencies{
				Dataset: ds,
				Logger:  logger,
			},
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "Dashboard running on http://%s/\n", addr)
		return api.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
}

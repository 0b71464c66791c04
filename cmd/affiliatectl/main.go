package main

import (
	"fmt"
	"os"

	"github.com/iurnickita/affiliatemart/internal/config"
	"github.com/iurnickita/affiliatemart/internal/logger"
	"github.com/iurnickita/affiliatemart/internal/tracker"
	"github.com/iurnickita/affiliatemart/internal/tracker/localstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

// app общее состояние подкоманд
type app struct {
	cfg    config.Config
	zaplog *zap.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "affiliatectl",
		Short:   "Affiliate attribution client and admin tool",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.zaplog != nil {
				a.zaplog.Sync()
			}
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("endpoint", "", "Attribution endpoint, e.g. https://affiliates.example/affiliate")
	flags.String("store", "", "Path to the local tracker store")
	flags.Int("attempts", 0, "Delivery attempts per order")
	flags.Duration("delay", 0, "Delay between delivery attempts")

	rootCmd.AddCommand(trackCmd(a))
	rootCmd.AddCommand(fallbacksCmd(a))
	rootCmd.AddCommand(registryCmd(a))
	rootCmd.AddCommand(tokenCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Tracker.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("store") {
		cfg.Tracker.StorePath, _ = flags.GetString("store")
	}
	if flags.Changed("attempts") {
		cfg.Tracker.Attempts, _ = flags.GetInt("attempts")
	}
	if flags.Changed("delay") {
		cfg.Tracker.Delay, _ = flags.GetDuration("delay")
	}
	a.cfg = cfg

	cfg.Logger.Development = true
	a.zaplog, err = logger.NewZapLog(cfg.Logger)
	return err
}

// openTracker opens the local store; the caller closes it.
func (a *app) openTracker() (tracker.Tracker, localstore.Store, error) {
	store, err := localstore.Open(a.cfg.Tracker.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store %s: %w", a.cfg.Tracker.StorePath, err)
	}
	t, err := tracker.NewTracker(a.cfg.Tracker, store, a.zaplog)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return t, store, nil
}

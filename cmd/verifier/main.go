// Command verifier scores X1 tokens, serves the verification API and
// watches tracked mints for liquidity events.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"x1-token-verifier/internal/app"
	"x1-token-verifier/internal/config"
	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/report"
)

type globalFlags struct {
	configFile string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "verifier",
		Short:         "Risk-score SPL and Token-2022 mints on X1",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env", "", "dotenv file loaded before env overrides")

	root.AddCommand(
		newServeCmd(&flags),
		newScoreCmd(&flags),
		newTaxCmd(&flags),
		newLiquidityCmd(&flags),
		newReportCmd(&flags),
		newWatchCmd(&flags),
		newMigrateCmd(&flags),
	)
	return root
}

// setup loads config and builds the app under a signal-aware context.
func setup(flags *globalFlags) (context.Context, context.CancelFunc, *app.App, error) {
	cfg, err := config.Load(flags.configFile, flags.envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ctx, cancel, a, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var withWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP verification API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, a, err := setup(flags)
			if err != nil {
				return err
			}
			defer cancel()
			defer a.Close()

			cfg := a.Config
			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      a.Handler(),
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			}

			var runWatch func(context.Context) error
			if withWatch || cfg.Watch.Enabled {
				w, closeWS, err := a.NewWatcher(ctx)
				if err != nil {
					return err
				}
				defer closeWS()
				runWatch = w.Run
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.Logger.WithField("addr", srv.Addr).Info("[serve] listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
				defer stop()
				return srv.Shutdown(shutdownCtx)
			})

			if runWatch != nil {
				g.Go(func() error {
					if err := runWatch(gctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}

			err = g.Wait()
			a.Logger.Info("[serve] shutdown complete")
			return err
		},
	}

	cmd.Flags().BoolVar(&withWatch, "watch", false, "also run the liquidity watcher")
	return cmd
}

func newScoreCmd(flags *globalFlags) *cobra.Command {
	var network string

	cmd := &cobra.Command{
		Use:   "score <mint>",
		Short: "Score a mint and print the assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, a, err := setup(flags)
			if err != nil {
				return err
			}
			defer cancel()
			defer a.Close()

			if network == "" {
				network = a.Service.Network()
			}
			assessment, err := a.Service.ScoreToken(ctx, args[0], network)
			if err != nil {
				return err
			}
			return printJSON(assessment)
		},
	}

	cmd.Flags().StringVar(&network, "network", "", "network label (defaults to config)")
	return cmd
}

func newTaxCmd(flags *globalFlags) *cobra.Command {
	var tokenType string

	cmd := &cobra.Command{
		Use:   "tax <mint>",
		Short: "Analyze transfer-fee and transfer-hook taxes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, a, err := setup(flags)
			if err != nil {
				return err
			}
			defer cancel()
			defer a.Close()

			rep, err := a.Service.AnalyzeTax(ctx, args[0], tokenType)
			if err != nil {
				return err
			}
			return printJSON(rep)
		},
	}

	cmd.Flags().StringVar(&tokenType, "type", "", "expected token program (SPL or TOKEN2022)")
	return cmd
}

func newLiquidityCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "liquidity <mint>",
		Short: "Detect DEX pools and LP status for a mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, a, err := setup(flags)
			if err != nil {
				return err
			}
			defer cancel()
			defer a.Close()

			profile, err := a.Service.DetectLiquidity(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(profile)
		},
	}
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var (
		in       report.Input
		category string
	)

	cmd := &cobra.Command{
		Use:   "report <mint>",
		Short: "Submit a user report against a mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, a, err := setup(flags)
			if err != nil {
				return err
			}
			defer cancel()
			defer a.Close()

			in.MintAddress = args[0]
			in.Category = domain.ReportCategory(category)
			res, err := a.Trigger.SubmitReport(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	cmd.Flags().StringVar(&in.ReporterIdentity, "reporter", "", "reporter identity (required)")
	cmd.Flags().StringVar(&in.Reason, "reason", "", "free-form reason")
	cmd.Flags().StringVar(&category, "category", "", "report category (defaults to suspicious)")
	_ = cmd.MarkFlagRequired("reporter")
	return cmd
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-score tracked mints on DEX activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, a, err := setup(flags)
			if err != nil {
				return err
			}
			defer cancel()
			defer a.Close()

			w, closeWS, err := a.NewWatcher(ctx)
			if err != nil {
				return err
			}
			defer closeWS()

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply storage migrations and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configFile, flags.envFile)
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Logger)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := app.Migrate(ctx, cfg, logger); err != nil {
				logger.WithError(err).Error("[migrate] failed")
				return err
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"finance-backend/internal/config"
	"finance-backend/internal/engine"
	"finance-backend/internal/finance"
	"finance-backend/internal/instrument"
	"finance-backend/internal/query"
	"finance-backend/internal/store"
)

// cli carries what every subcommand shares once the root has loaded config.
type cli struct {
	configPath string
	cfg        *config.Config
	log        *logrus.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "finance",
		Short:         "Finance list/query backend",
		Long:          "Serves filtered, sorted and paginated listings of accounts, transactions and savings jars.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c.cfg, c.log = cfg, log
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a config file (default ./app.yaml)")

	rootCmd.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newQueryCmd(c),
		newTokenCmd(c),
	)
	return rootCmd
}

// newLogger builds a logrus logger from the log section of the config.
func newLogger(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006/01/02 15:04:05",
			FullTimestamp:   true,
			DisableSorting:  true,
		})
	default:
		return nil, fmt.Errorf("config: unsupported log.format %q", cfg.Format)
	}
	return log, nil
}

// openStore connects, creates or extends the resource tables and, when
// seedOwner is set, inserts the demo data set for that owner.
func (c *cli) openStore(ctx context.Context, seedOwner string) (*store.Store, error) {
	s, err := store.New(ctx, c.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	c.log.WithField("driver", s.Dialect.Name()).Debug("database connected")

	if err := finance.Migrate(ctx, s); err != nil {
		s.Close()
		return nil, err
	}
	if err := instrument.Migrate(ctx, s); err != nil {
		s.Close()
		return nil, err
	}

	if seedOwner != "" {
		owner, err := uuid.Parse(seedOwner)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("--seed: %w", err)
		}
		if err := finance.Seed(ctx, s, owner); err != nil {
			s.Close()
			return nil, err
		}
		c.log.WithField("owner", owner).Info("demo data seeded")
	}
	return s, nil
}

// registry lists every resource served from s.
func (c *cli) registry(s *store.Store) *engine.Registry {
	opts := query.Options{
		DefaultPageSize: c.cfg.Query.DefaultPageSize,
		MaxPageSize:     c.cfg.Query.MaxPageSize,
	}
	reg := engine.NewRegistry()
	finance.Register(reg, s, opts, c.log)
	instrument.Register(reg, s, opts, c.log)
	return reg
}

func newMigrateCmd(c *cli) *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or extend the resource tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.openStore(cmd.Context(), seed)
			if err != nil {
				return err
			}
			defer s.Close()
			c.log.Info("tables ready")
			return nil
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "owner UUID to seed demo data for")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"finance-backend/internal/auth"
	"finance-backend/internal/engine"
	"finance-backend/internal/instrument"
	"finance-backend/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupInterval = time.Hour
)

func newServeCmd(c *cli) *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context(), seed)
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "owner UUID to seed demo data for before starting")
	return cmd
}

func (c *cli) serve(ctx context.Context, seed string) error {
	// 1. Connect, migrate and optionally seed
	s, err := c.openStore(ctx, seed)
	if err != nil {
		return err
	}
	defer s.Close()

	// 2. Query event log
	var rec engine.Recorder
	if ev := c.cfg.Events; ev.Enabled {
		buffer := instrument.NewEventBuffer(s, c.log, ev.BufferSize, time.Duration(ev.FlushIntervalMs)*time.Millisecond)
		defer buffer.Stop()
		rec = buffer
		go instrument.RunCleanup(ctx, s, c.log, time.Duration(ev.RetentionDays)*24*time.Hour, cleanupInterval)
	}

	// 3. Build the app
	app, err := c.newApp(s, rec)
	if err != nil {
		return err
	}

	// 4. Shut down when the context ends
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			c.log.WithError(err).Warn("shutdown")
		}
	}()

	// 5. Start server
	addr := fmt.Sprintf(":%d", c.cfg.Server.Port)
	c.log.WithField("addr", addr).Info("starting server")
	return app.Listen(addr)
}

// newApp wires the fiber app: middleware, health check and the resource
// routes behind the auth middleware. rec may be nil.
func (c *cli) newApp(s *store.Store, rec engine.Recorder) (*fiber.App, error) {
	verifier, err := auth.NewVerifier(c.cfg.Auth)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          engine.ErrorHandler(c.log),
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
		Output: c.log.Out,
	}))

	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "ok"})
	})

	handler := engine.NewHandler(c.registry(s), c.log).WithRecorder(rec).WithTimeout(c.cfg.Query.Timeout)
	engine.RegisterRoutes(app, handler, auth.Middleware(verifier, c.log))
	return app, nil
}

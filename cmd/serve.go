package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/instiboard/discussiond/internal/api"
	"github.com/instiboard/discussiond/internal/config"
	"github.com/instiboard/discussiond/internal/database"
	"github.com/instiboard/discussiond/internal/discussion"
	"github.com/instiboard/discussiond/internal/identity"
	"github.com/instiboard/discussiond/internal/jobqueue"
	"github.com/instiboard/discussiond/internal/realtime"
)

// ServeCommand returns the CLI command for starting the discussiond API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the discussiond API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	db, err := database.NewDB(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Realtime channel: Redis pub/sub when configured, in-process hub otherwise.
	var broker realtime.Broker
	if cfg.Redis.URL != "" {
		redisBroker, err := realtime.NewRedisBroker(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		broker = redisBroker
		log.Info().Msg("realtime channel: redis pub/sub")
	} else {
		broker = realtime.NewHub()
		log.Info().Msg("realtime channel: in-process hub")
	}

	resolver := identity.NewCachedResolver(
		identity.NewDirectoryStore(db),
		time.Duration(cfg.Identity.CacheTTLSeconds)*time.Second,
	)

	store := discussion.NewEventService(db, broker)

	var notifier api.MentionNotifier
	if cfg.Queue.Enabled {
		queue, err := jobqueue.NewJobQueue(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to create job queue: %w", err)
		}
		if err := queue.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start job queue: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := queue.Stop(stopCtx); err != nil {
				log.Warn().Err(err).Msg("failed to stop job queue cleanly")
			}
		}()
		notifier = queue
		log.Info().Int("max_workers", jobqueue.GetQueueConfig().MaxWorkers).Msg("mention notification queue started")
	}

	log.Info().Int("port", port).Msg("starting discussiond API server")

	server := api.NewServer(port, api.ServerDeps{
		Store:     store,
		Broker:    broker,
		Resolver:  resolver,
		Notifier:  notifier,
		JWTSecret: cfg.Auth.JWTSecret,
	})
	return server.Start()
}

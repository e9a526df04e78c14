package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/michaeltrefry/Yapplr-sub003/store"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/contentanalysis"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/policy"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/ratelimit"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/trust"
	"github.com/michaeltrefry/Yapplr-sub003/trustmod/visibility"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "trustd",
		Usage:   "trust-based visibility and moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/trustd/trustd.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for block state and author snapshot cache",
			EnvVars: []string{"TRUSTD_REDIS_URL", "REDIS_URL"},
		},
		&cli.BoolFlag{
			Name:    "readonly",
			EnvVars: []string{"TRUSTD_READONLY", "READONLY"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3600",
			EnvVars: []string{"TRUSTD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3601",
			EnvVars: []string{"TRUSTD_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "policy-config-json",
			Usage:   "path to JSON file with policy ladder overrides",
			EnvVars: []string{"TRUSTD_POLICY_CONFIG_JSON"},
		},
		&cli.StringFlag{
			Name:    "weights-config-json",
			Usage:   "path to JSON file with trust action weight overrides",
			EnvVars: []string{"TRUSTD_WEIGHTS_CONFIG_JSON"},
		},
		&cli.StringFlag{
			Name:    "ratelimit-config-json",
			Usage:   "path to JSON file with rate limit operation overrides",
			EnvVars: []string{"TRUSTD_RATELIMIT_CONFIG_JSON"},
		},
		&cli.StringFlag{
			Name:    "analysis-host",
			Usage:   "base URL of the content analysis sidecar; empty runs local patterns only",
			EnvVars: []string{"TRUSTD_ANALYSIS_HOST"},
		},
		&cli.Float64Flag{
			Name:    "analysis-rate-limit",
			Usage:   "max requests per second to the analysis sidecar",
			Value:   10,
			EnvVars: []string{"TRUSTD_ANALYSIS_RATE_LIMIT"},
		},
		&cli.Int64Flag{
			Name:    "scan-per-second",
			Usage:   "max posts analyzed per second by the background worker",
			Value:   20,
			EnvVars: []string{"TRUSTD_SCAN_PER_SECOND"},
		},
		&cli.Int64Flag{
			Name:    "scan-per-hour",
			Usage:   "max posts analyzed per hour by the background worker",
			Value:   20_000,
			EnvVars: []string{"TRUSTD_SCAN_PER_HOUR"},
		},
		&cli.DurationFlag{
			Name:    "scan-interval",
			Usage:   "how often the background worker polls for new posts",
			Value:   30 * time.Second,
			EnvVars: []string{"TRUSTD_SCAN_INTERVAL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		if err := configOTEL(cctx.Context, "trustd", logger); err != nil {
			return err
		}

		db, err := store.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}
		if err := store.MigrateDatabase(db); err != nil {
			return fmt.Errorf("running database migrations: %w", err)
		}
		st := store.NewGormStore(db)

		pol := policy.Default()
		if p := cctx.String("policy-config-json"); p != "" {
			pol, err = policy.LoadFromFileJSON(p)
			if err != nil {
				return fmt.Errorf("loading policy config: %w", err)
			}
			logger.Info("loaded policy config from JSON", "path", p)
		}

		weights := trust.DefaultWeights()
		if p := cctx.String("weights-config-json"); p != "" {
			weights, err = trust.LoadWeightsFromFileJSON(p)
			if err != nil {
				return fmt.Errorf("loading weights config: %w", err)
			}
			logger.Info("loaded trust weights from JSON", "path", p)
		}

		rlConfig := ratelimit.DefaultConfig()
		if p := cctx.String("ratelimit-config-json"); p != "" {
			rlConfig, err = ratelimit.LoadConfigFromFileJSON(p)
			if err != nil {
				return fmt.Errorf("loading rate limit config: %w", err)
			}
			logger.Info("loaded rate limit config from JSON", "path", p)
		}

		redisURL := cctx.String("redis-url")

		base := &visibility.BaseDirectory{Users: st}
		var dir visibility.AuthorDirectory
		if redisURL != "" {
			rdir, err := visibility.NewRedisDirectory(base, redisURL, 2*time.Minute)
			if err != nil {
				return fmt.Errorf("initializing redis author directory: %w", err)
			}
			dir = rdir
		} else {
			dir = visibility.NewCacheDirectory(base, 50_000, 2*time.Minute)
		}

		var blocks ratelimit.BlockStore
		if redisURL != "" {
			rbs, err := ratelimit.NewRedisBlockStore(redisURL)
			if err != nil {
				return fmt.Errorf("initializing redis block store: %w", err)
			}
			blocks = rbs
		} else {
			blocks = ratelimit.NewMemBlockStore()
		}

		engine := trust.NewEngine(st, logger)
		engine.Weights = weights
		engine.OnScoreChange = func(userID uint) {
			// author snapshots cache trust scores; drop them on change
			if err := dir.Purge(context.Background(), userID); err != nil {
				logger.Warn("failed to purge author snapshot", "uid", userID, "err", err)
			}
		}

		limiter := ratelimit.NewLimiter(rlConfig, pol, engine, blocks, logger)
		limiter.SetRoleSource(st)

		feeds := &visibility.FeedService{
			Logger:        logger,
			Relationships: st,
			Directory:     dir,
		}

		var analyzer contentanalysis.Analyzer
		if host := cctx.String("analysis-host"); host != "" {
			logger.Info("configuring remote content analysis", "host", host)
			analyzer = &contentanalysis.FallbackAnalyzer{
				Remote: contentanalysis.NewClient(host, cctx.Float64("analysis-rate-limit"), logger),
				Logger: logger,
			}
		} else {
			analyzer = contentanalysis.LocalAnalyzer{}
		}
		moderator := contentanalysis.NewModerator(analyzer, engine, st, &reportSink{store: st}, pol, logger)
		moderator.Weights = weights

		readonly := cctx.Bool("readonly")

		srv, err := NewServer(Config{
			Logger:   logger,
			Bind:     cctx.String("bind"),
			Readonly: readonly,
			Store:    st,
			Engine:   engine,
			Feeds:    feeds,
			Limiter:  limiter,
			Policy:   pol,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		exitSignals := make(chan os.Signal, 1)
		signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-exitSignals
			logger.Info("received OS exit signal", "signal", sig)
			cancel()
		}()

		limiter.StartJanitor(ctx)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.RunAPI(ctx)
		})
		g.Go(func() error {
			return srv.RunMetrics(ctx, cctx.String("metrics-listen"))
		})
		if !readonly {
			worker := NewWorker(st, moderator, WorkerConfig{
				Logger:    logger,
				Interval:  cctx.Duration("scan-interval"),
				PerSecond: cctx.Int64("scan-per-second"),
				PerHour:   cctx.Int64("scan-per-hour"),
			})
			g.Go(func() error {
				return worker.Run(ctx)
			})
		}

		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to run trustd service: %w", err)
		}
		return nil
	},
}

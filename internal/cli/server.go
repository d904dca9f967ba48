package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quiz-hosting/internal/app"
	"quiz-hosting/internal/config"
	"quiz-hosting/internal/infra/azure"
	"quiz-hosting/internal/infra/memory"
	"quiz-hosting/internal/infra/postgres"
	redisinfra "quiz-hosting/internal/infra/redis"
	"quiz-hosting/internal/infra/sqlite"
	transport "quiz-hosting/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type persistence struct {
	store   app.QuizStore
	loader  memory.QuizLoader
	closers []io.Closer
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	config.InitLogger(cfg.Log.Level, cfg.Log.Format)
	log := config.Logger.WithField("component", "server")

	db, err := openPersistence(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range db.closers {
			if err := c.Close(); err != nil {
				log.WithError(err).Warn("close failed")
			}
		}
	}()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, db.loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(db.loader, quizTTL)
	}

	blobs, err := openBlobStore(ctx, cfg, redisClient)
	if err != nil {
		return err
	}

	service := app.NewQuizService(db.store, quizRepo, blobs, app.NewScoreFeed())
	handler := transport.NewHandler(service, blobs, transport.NewRenderer(cfg.Blob.PublicURL))
	router := transport.NewRouter(handler, transport.NewWSHandler(service))

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":     finalPort,
			"database": cfg.Database.Driver,
			"blob":     cfg.Blob.Backend,
		}).Info("starting quiz server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openPersistence(ctx context.Context, cfg config.Config) (persistence, error) {
	switch cfg.Database.Driver {
	case "memory":
		store := memory.NewStore()
		return persistence{store: store, loader: store}, nil
	case "sqlite":
		store, err := sqlite.NewStore(cfg.Database.Path)
		if err != nil {
			return persistence{}, err
		}
		return persistence{store: store, loader: store, closers: []io.Closer{store}}, nil
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return persistence{}, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return persistence{}, err
		}
		db := postgres.Open(cfg.Database.URL)
		return persistence{
			store:   postgres.NewStore(db),
			loader:  postgres.NewQuizLoader(pool),
			closers: []io.Closer{db, closerFunc(pool.Close)},
		}, nil
	default:
		return persistence{}, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openBlobStore(ctx context.Context, cfg config.Config, client *redis.Client) (app.BlobStore, error) {
	switch cfg.Blob.Backend {
	case "memory":
		return memory.NewBlobStore(), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis blob backend requires redis.addr")
		}
		return redisinfra.NewBlobStore(client), nil
	case "azure":
		store, err := azure.NewBlobStore(cfg.Blob.ConnectionString, cfg.Blob.Container)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

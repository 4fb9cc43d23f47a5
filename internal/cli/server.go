package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gameshow-quiz-service/internal/config"
	"gameshow-quiz-service/internal/engine"
	filebank "gameshow-quiz-service/internal/infra/file"
	"gameshow-quiz-service/internal/infra/memory"
	pgbank "gameshow-quiz-service/internal/infra/postgres"
	redisinfra "gameshow-quiz-service/internal/infra/redis"
	transport "gameshow-quiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

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
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	bankFile := cfg.Quiz.BankFile
	if bankFile == "" {
		bankFile = "config/questions.yaml"
	}
	bankID := cfg.Quiz.BankID
	if bankID == "" {
		bankID = "default"
	}

	var loader memory.BankLoader = filebank.NewBankLoader(bankFile)
	if pool != nil {
		loader = pgbank.NewBankLoader(pool, bankID)
	}

	bankTTL := config.Duration(cfg.Quiz.BankTTL, 10*time.Minute)
	var banks engine.BankProvider
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	opts := []engine.Option{
		engine.WithMinPlayers(cfg.Quiz.MinPlayers),
		engine.WithWindow(config.Duration(cfg.Quiz.AnswerWindow, engine.DefaultWindow)),
	}
	if redisClient != nil {
		opts = append(opts, engine.WithNotifier(redisinfra.NewSnapshotPublisher(redisClient, redisTTL)))
	}

	quizEngine, err := engine.New(ctx, banks, opts...)
	if err != nil {
		return err
	}

	leaderboardSize := cfg.Quiz.LeaderboardSize
	if leaderboardSize == 0 {
		leaderboardSize = 10
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(quizEngine, leaderboardSize).Register(mux)
	mux.HandleFunc("/ws/control", transport.NewControlHandler(quizEngine, leaderboardSize).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

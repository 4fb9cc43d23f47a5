package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"gameshow-quiz-service/internal/domain"
	"gameshow-quiz-service/internal/engine"
	pgbank "gameshow-quiz-service/internal/infra/postgres"
	pgmigrations "gameshow-quiz-service/internal/infra/postgres/migrations"
	redisinfra "gameshow-quiz-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestGameRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBank(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgbank.NewBankLoader(pool, "default")

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	banks := redisinfra.NewBankRepository(redisClient, loader, 5*time.Minute)
	publisher := redisinfra.NewSnapshotPublisher(redisClient, 5*time.Minute)

	quizEngine, err := engine.New(ctx, banks, engine.WithNotifier(publisher))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	alice, err := quizEngine.Join("Alice")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	bob, err := quizEngine.Join("Bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if err := quizEngine.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := quizEngine.RevealOptions(); err != nil {
		t.Fatalf("reveal: %v", err)
	}

	points, err := quizEngine.SubmitAnswer(alice, 1)
	if err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if points < 500 || points > 1000 {
		t.Fatalf("points out of range: %d", points)
	}
	if _, err := quizEngine.SubmitAnswer(bob, 0); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	results, err := quizEngine.ShowAnswers()
	if err != nil {
		t.Fatalf("show answers: %v", err)
	}
	if results.AnsweredCount != 2 || len(results.CorrectPlayers) != 1 || results.CorrectPlayers[0] != "Alice" {
		t.Fatalf("unexpected results: %+v", results)
	}

	entries, err := quizEngine.ShowLeaderboard()
	if err != nil {
		t.Fatalf("show leaderboard: %v", err)
	}
	if entries[0].Name != "Alice" {
		t.Fatalf("expected Alice leading, got %+v", entries)
	}

	// The live snapshot landed in Redis.
	raw, err := redisClient.Get(ctx, "quiz:live:leaderboard").Bytes()
	if err != nil {
		t.Fatalf("read live leaderboard: %v", err)
	}
	var published []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &published); err != nil {
		t.Fatalf("unmarshal live leaderboard: %v", err)
	}
	if len(published) != 2 || published[0].Name != "Alice" {
		t.Fatalf("unexpected published leaderboard: %+v", published)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedBank(t *testing.T, ctx context.Context, dsn string, bank domain.QuestionBank) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(bank)
	if err != nil {
		t.Fatalf("marshal bank: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_banks (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, "default", string(data)); err != nil {
		t.Fatalf("insert bank: %v", err)
	}
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		Title: "Integration Night",
		Questions: []domain.Question{
			{ID: 0, Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: 1},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

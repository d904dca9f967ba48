package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"quiz-hosting/internal/app"
	"quiz-hosting/internal/domain"
	"quiz-hosting/internal/infra/postgres"
	pgmigrations "quiz-hosting/internal/infra/postgres/migrations"
	infraredis "quiz-hosting/internal/infra/redis"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.Open(pgURL)
	defer db.Close()
	migrateDB(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	blobs := infraredis.NewBlobStore(redisClient)
	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)
	service := app.NewQuizService(postgres.NewStore(db), quizRepo, blobs, nil)

	quiz, err := service.CreateQuiz(ctx, "Geo", []domain.NewQuestion{
		{Text: "Capital of France?", CorrectAnswer: "Paris"},
		{Text: "Flag?", CorrectAnswer: "Tricolore", Image: &domain.ImageUpload{
			Filename: "flag.png",
			Content:  strings.NewReader("png-bytes"),
		}},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	qw, err := service.GetQuizWithQuestions(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(qw.Questions) != 2 || qw.Questions[0].Text != "Capital of France?" {
		t.Fatalf("unexpected questions %+v", qw.Questions)
	}
	wantKey := app.BlobKey(quiz.ID, 1, "flag.png")
	if qw.Questions[0].HasImage() || qw.Questions[1].ImageFilename != wantKey {
		t.Fatalf("expected image only on second question under %s, got %+v", wantKey, qw.Questions)
	}
	rc, err := blobs.Open(ctx, wantKey)
	if err != nil {
		t.Fatalf("open blob: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected blob content %q", data)
	}

	first, second := qw.Questions[0].ID, qw.Questions[1].ID
	if _, err := service.GradeAndRecord(ctx, quiz.ID, "alice", map[int64]string{first: "paris", second: " TRICOLORE"}); err != nil {
		t.Fatalf("grade alice: %v", err)
	}
	if _, err := service.GradeAndRecord(ctx, quiz.ID, "bob", map[int64]string{first: "Lyon"}); err != nil {
		t.Fatalf("grade bob: %v", err)
	}

	scores, err := service.ListScores(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("list scores: %v", err)
	}
	if len(scores) != 2 || scores[0].Pseudo != "alice" || scores[0].UserScore != 2 || scores[1].UserScore != 0 {
		t.Fatalf("unexpected scores %+v", scores)
	}

	if _, err := service.ListScores(ctx, quiz.ID+100); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found for unknown quiz, got %v", err)
	}
}

type failingBlobs struct{}

func (failingBlobs) Put(context.Context, string, io.Reader) error {
	return errors.New("blob backend down")
}

func (failingBlobs) Delete(context.Context, string) error { return nil }

func TestCreateQuizRollsBackInPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.Open(pgURL)
	defer db.Close()
	migrateDB(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewStore(db)
	repo := postgresOnlyRepo{loader: postgres.NewQuizLoader(pool)}
	service := app.NewQuizService(store, repo, failingBlobs{}, nil)

	_, err = service.CreateQuiz(ctx, "Geo", []domain.NewQuestion{
		{Text: "Q1", CorrectAnswer: "A"},
		{Text: "Q2", CorrectAnswer: "B", Image: &domain.ImageUpload{Filename: "flag.png", Content: strings.NewReader("x")}},
	})
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) || storageErr.File != "flag.png" {
		t.Fatalf("expected storage error naming flag.png, got %v", err)
	}

	quizzes, err := store.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(quizzes) != 0 {
		t.Fatalf("expected rollback to leave no quiz, got %+v", quizzes)
	}
	count, err := db.NewSelect().Table("question").Count(ctx)
	if err != nil {
		t.Fatalf("count questions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no question rows, got %d", count)
	}
}

type postgresOnlyRepo struct {
	loader *postgres.QuizLoader
}

func (r postgresOnlyRepo) GetQuiz(ctx context.Context, quizID int64) (domain.QuizWithQuestions, error) {
	return r.loader.LoadQuiz(ctx, quizID)
}

func migrateDB(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

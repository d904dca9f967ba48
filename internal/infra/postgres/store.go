package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-hosting/internal/app"
	"quiz-hosting/internal/domain"
)

// Store persists quizzes, questions and scores through bun.
type Store struct {
	db *bun.DB
}

// Open connects bun to the Postgres DSN.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

type bunTx struct {
	tx bun.Tx
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.QuizWriter) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{tx: tx})
	})
}

func (t *bunTx) InsertQuiz(ctx context.Context, title string) (int64, error) {
	row := &quizRow{Title: title}
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert quiz: %w", err)
	}
	return row.ID, nil
}

func (t *bunTx) InsertQuestion(ctx context.Context, q domain.Question) (int64, error) {
	row := &questionRow{
		QuizID:        q.QuizID,
		QuestionText:  q.Text,
		CorrectAnswer: q.CorrectAnswer,
		ImageFilename: q.ImageFilename,
	}
	if _, err := t.tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return row.ID, nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, r.toDomain())
	}
	return quizzes, nil
}

func (s *Store) InsertScore(ctx context.Context, quizID int64, pseudo string, userScore int) (int64, error) {
	row := &scoreRow{QuizID: quizID, Pseudo: pseudo, UserScore: userScore}
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert score: %w", err)
	}
	return row.ID, nil
}

func (s *Store) ListScores(ctx context.Context, quizID int64) ([]domain.Score, error) {
	var rows []scoreRow
	if err := s.db.NewSelect().Model(&rows).Where("quiz_id = ?", quizID).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	scores := make([]domain.Score, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, r.toDomain())
	}
	return scores, nil
}

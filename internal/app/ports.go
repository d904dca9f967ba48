package app

import (
	"context"
	"io"

	"quiz-hosting/internal/domain"
)

// QuizWriter is the write side of one quiz creation transaction.
type QuizWriter interface {
	InsertQuiz(ctx context.Context, title string) (int64, error)
	InsertQuestion(ctx context.Context, q domain.Question) (int64, error)
}

// QuizStore abstracts the relational datastore (memory, SQLite, Postgres).
type QuizStore interface {
	// RunInTx runs fn in a single transaction. Any error returned by fn
	// rolls back every row written through the QuizWriter.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx QuizWriter) error) error
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	InsertScore(ctx context.Context, quizID int64, pseudo string, userScore int) (int64, error)
	ListScores(ctx context.Context, quizID int64) ([]domain.Score, error)
}

// QuizRepository loads a quiz with its questions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.QuizWithQuestions, error)
}

// BlobStore stores opaque image bytes under a key, replacing any previous value.
type BlobStore interface {
	Put(ctx context.Context, key string, content io.Reader) error
	Delete(ctx context.Context, key string) error
}

// BlobOpener is implemented by blob stores that can stream content back.
type BlobOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

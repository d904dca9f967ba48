package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-hosting/internal/domain"
)

// QuizLoader loads a quiz and its questions from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizWithQuestions, error) {
	var quiz domain.Quiz
	err := l.pool.QueryRow(ctx, `SELECT id, title FROM quiz WHERE id=$1`, quizID).Scan(&quiz.ID, &quiz.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QuizWithQuestions{}, domain.ErrQuizNotFound
		}
		return domain.QuizWithQuestions{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, quiz_id, question_text, correct_answer, image_filename
		FROM question
		WHERE quiz_id=$1
		ORDER BY id`, quizID)
	if err != nil {
		return domain.QuizWithQuestions{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q     domain.Question
			image *string
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.CorrectAnswer, &image); err != nil {
			return domain.QuizWithQuestions{}, fmt.Errorf("scan question: %w", err)
		}
		if image != nil {
			q.ImageFilename = *image
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizWithQuestions{}, fmt.Errorf("load questions: %w", err)
	}
	return domain.QuizWithQuestions{Quiz: quiz, Questions: questions}, nil
}

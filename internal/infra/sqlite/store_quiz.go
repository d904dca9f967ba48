package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quiz-hosting/internal/app"
	"quiz-hosting/internal/domain"
)

type sqliteTx struct {
	tx *sql.Tx
}

// RunInTx wraps the quiz row, its question rows and fn's side effects in
// one transaction; fn returning an error rolls everything back.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.QuizWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (t *sqliteTx) InsertQuiz(ctx context.Context, title string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `INSERT INTO quiz (title) VALUES (?)`, title)
	if err != nil {
		return 0, fmt.Errorf("insert quiz: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqliteTx) InsertQuestion(ctx context.Context, q domain.Question) (int64, error) {
	res, err := t.tx.ExecContext(
		ctx,
		`INSERT INTO question (quiz_id, question_text, correct_answer, image_filename) VALUES (?, ?, ?, ?)`,
		q.QuizID,
		q.Text,
		q.CorrectAnswer,
		nullString(q.ImageFilename),
	)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM quiz ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var q domain.Quiz
		if err := rows.Scan(&q.ID, &q.Title); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// LoadQuiz implements the quiz cache loader.
func (s *Store) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizWithQuestions, error) {
	var quiz domain.Quiz
	err := s.db.QueryRowContext(ctx, `SELECT id, title FROM quiz WHERE id = ?`, quizID).Scan(&quiz.ID, &quiz.Title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QuizWithQuestions{}, domain.ErrQuizNotFound
		}
		return domain.QuizWithQuestions{}, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, quiz_id, question_text, correct_answer, image_filename
		 FROM question
		 WHERE quiz_id = ?
		 ORDER BY id ASC`,
		quizID,
	)
	if err != nil {
		return domain.QuizWithQuestions{}, err
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q     domain.Question
			image sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.CorrectAnswer, &image); err != nil {
			return domain.QuizWithQuestions{}, err
		}
		q.ImageFilename = image.String
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizWithQuestions{}, err
	}

	return domain.QuizWithQuestions{Quiz: quiz, Questions: questions}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package sqlite

import (
	"context"
	"fmt"

	"quiz-hosting/internal/domain"
)

func (s *Store) InsertScore(ctx context.Context, quizID int64, pseudo string, userScore int) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO score (quiz_id, pseudo, user_score) VALUES (?, ?, ?)`,
		quizID,
		pseudo,
		userScore,
	)
	if err != nil {
		return 0, fmt.Errorf("insert score: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) ListScores(ctx context.Context, quizID int64) ([]domain.Score, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, quiz_id, pseudo, user_score FROM score WHERE quiz_id = ? ORDER BY id ASC`,
		quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]domain.Score, 0)
	for rows.Next() {
		var sc domain.Score
		if err := rows.Scan(&sc.ID, &sc.QuizID, &sc.Pseudo, &sc.UserScore); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

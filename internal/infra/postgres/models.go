package postgres

import (
	"github.com/uptrace/bun"

	"quiz-hosting/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quiz"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Title string `bun:"title,notnull"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:question"`

	ID            int64  `bun:"id,pk,autoincrement"`
	QuizID        int64  `bun:"quiz_id,notnull"`
	QuestionText  string `bun:"question_text,notnull"`
	CorrectAnswer string `bun:"correct_answer,notnull"`
	ImageFilename string `bun:"image_filename,nullzero"`
}

type scoreRow struct {
	bun.BaseModel `bun:"table:score"`

	ID        int64  `bun:"id,pk,autoincrement"`
	QuizID    int64  `bun:"quiz_id,notnull"`
	Pseudo    string `bun:"pseudo,notnull"`
	UserScore int    `bun:"user_score,notnull"`
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{ID: r.ID, Title: r.Title}
}

func (r scoreRow) toDomain() domain.Score {
	return domain.Score{ID: r.ID, QuizID: r.QuizID, Pseudo: r.Pseudo, UserScore: r.UserScore}
}

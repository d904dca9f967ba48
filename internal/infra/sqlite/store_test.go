package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"quiz-hosting/internal/app"
	"quiz-hosting/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func createQuiz(t *testing.T, store *Store, title string, questions ...domain.Question) int64 {
	t.Helper()
	var quizID int64
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx app.QuizWriter) error {
		id, err := tx.InsertQuiz(ctx, title)
		if err != nil {
			return err
		}
		quizID = id
		for _, q := range questions {
			q.QuizID = id
			if _, err := tx.InsertQuestion(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create quiz failed: %v", err)
	}
	return quizID
}

func TestStoreCreateAndLoadQuiz(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := createQuiz(t, store, "Geo",
		domain.Question{Text: "Capital of France?", CorrectAnswer: "Paris"},
		domain.Question{Text: "Which flag?", CorrectAnswer: "France", ImageFilename: "quiz_1_q1_flag.png"},
	)

	qw, err := store.LoadQuiz(ctx, id)
	if err != nil {
		t.Fatalf("LoadQuiz failed: %v", err)
	}
	if qw.Quiz.Title != "Geo" || len(qw.Questions) != 2 {
		t.Fatalf("unexpected quiz: %+v", qw)
	}
	if qw.Questions[0].Text != "Capital of France?" || qw.Questions[0].HasImage() {
		t.Fatalf("question order or image not preserved: %+v", qw.Questions[0])
	}
	if qw.Questions[1].ImageFilename != "quiz_1_q1_flag.png" {
		t.Fatalf("image filename = %q", qw.Questions[1].ImageFilename)
	}

	if _, err := store.LoadQuiz(ctx, 999); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestStoreRollbackLeavesNoRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("upload failed")

	err := store.RunInTx(ctx, func(ctx context.Context, tx app.QuizWriter) error {
		id, err := tx.InsertQuiz(ctx, "Doomed")
		if err != nil {
			return err
		}
		if _, err := tx.InsertQuestion(ctx, domain.Question{QuizID: id, Text: "Q", CorrectAnswer: "A"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	quizzes, err := store.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("ListQuizzes failed: %v", err)
	}
	if len(quizzes) != 0 {
		t.Fatalf("expected no quizzes after rollback, got %+v", quizzes)
	}
}

func TestStoreQuestionForeignKey(t *testing.T) {
	store := newTestStore(t)
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx app.QuizWriter) error {
		_, err := tx.InsertQuestion(ctx, domain.Question{QuizID: 12, Text: "Q", CorrectAnswer: "A"})
		return err
	})
	if err == nil {
		t.Fatalf("expected foreign key violation")
	}
}

func TestStoreScores(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := createQuiz(t, store, "Geo", domain.Question{Text: "Q", CorrectAnswer: "A"})

	if _, err := store.InsertScore(ctx, id, "alice", 1); err != nil {
		t.Fatalf("InsertScore failed: %v", err)
	}
	if _, err := store.InsertScore(ctx, id, "bob", 0); err != nil {
		t.Fatalf("InsertScore failed: %v", err)
	}

	scores, err := store.ListScores(ctx, id)
	if err != nil {
		t.Fatalf("ListScores failed: %v", err)
	}
	if len(scores) != 2 || scores[0].Pseudo != "alice" || scores[0].UserScore != 1 || scores[1].Pseudo != "bob" {
		t.Fatalf("unexpected scores: %+v", scores)
	}

	quizzes, err := store.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("ListQuizzes failed: %v", err)
	}
	if len(quizzes) != 1 || quizzes[0].ID != id {
		t.Fatalf("unexpected quizzes: %+v", quizzes)
	}
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"quiz-hosting/internal/app"
	"quiz-hosting/internal/domain"
)

// Store is an in-memory implementation of app.QuizStore and QuizLoader.
// Writers are serialized; a transaction's rows become visible only on commit.
type Store struct {
	mu             sync.RWMutex
	nextQuizID     int64
	nextQuestionID int64
	nextScoreID    int64
	quizzes        []domain.Quiz
	questions      map[int64][]domain.Question
	scores         map[int64][]domain.Score
}

func NewStore() *Store {
	return &Store{
		questions: make(map[int64][]domain.Question),
		scores:    make(map[int64][]domain.Score),
	}
}

type memoryTx struct {
	store     *Store
	quizzes   []domain.Quiz
	questions []domain.Question
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.QuizWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.quizzes = append(s.quizzes, tx.quizzes...)
	for _, q := range tx.questions {
		s.questions[q.QuizID] = append(s.questions[q.QuizID], q)
	}
	return nil
}

// InsertQuiz reserves the next id. Ids of rolled back rows are not reused.
func (tx *memoryTx) InsertQuiz(_ context.Context, title string) (int64, error) {
	tx.store.nextQuizID++
	tx.quizzes = append(tx.quizzes, domain.Quiz{ID: tx.store.nextQuizID, Title: title})
	return tx.store.nextQuizID, nil
}

func (tx *memoryTx) InsertQuestion(_ context.Context, q domain.Question) (int64, error) {
	if !tx.quizVisible(q.QuizID) {
		return 0, fmt.Errorf("insert question: quiz %d: %w", q.QuizID, domain.ErrQuizNotFound)
	}
	tx.store.nextQuestionID++
	q.ID = tx.store.nextQuestionID
	tx.questions = append(tx.questions, q)
	return q.ID, nil
}

func (tx *memoryTx) quizVisible(id int64) bool {
	for _, q := range tx.quizzes {
		if q.ID == id {
			return true
		}
	}
	return tx.store.hasQuizLocked(id)
}

func (s *Store) hasQuizLocked(id int64) bool {
	for _, q := range s.quizzes {
		if q.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, len(s.quizzes))
	copy(out, s.quizzes)
	return out, nil
}

func (s *Store) InsertScore(_ context.Context, quizID int64, pseudo string, userScore int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasQuizLocked(quizID) {
		return 0, fmt.Errorf("insert score: quiz %d: %w", quizID, domain.ErrQuizNotFound)
	}
	s.nextScoreID++
	s.scores[quizID] = append(s.scores[quizID], domain.Score{
		ID:        s.nextScoreID,
		QuizID:    quizID,
		Pseudo:    pseudo,
		UserScore: userScore,
	})
	return s.nextScoreID, nil
}

func (s *Store) ListScores(_ context.Context, quizID int64) ([]domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Score, len(s.scores[quizID]))
	copy(out, s.scores[quizID])
	return out, nil
}

// LoadQuiz implements QuizLoader.
func (s *Store) LoadQuiz(_ context.Context, quizID int64) (domain.QuizWithQuestions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes {
		if q.ID != quizID {
			continue
		}
		questions := make([]domain.Question, len(s.questions[quizID]))
		copy(questions, s.questions[quizID])
		return domain.QuizWithQuestions{Quiz: q, Questions: questions}, nil
	}
	return domain.QuizWithQuestions{}, domain.ErrQuizNotFound
}

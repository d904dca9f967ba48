package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"quiz-hosting/internal/config"
	"quiz-hosting/internal/domain"
)

// QuizService contains the quiz use cases.
type QuizService struct {
	store   QuizStore
	quizzes QuizRepository
	blobs   BlobStore
	feed    *ScoreFeed
}

func NewQuizService(store QuizStore, quizzes QuizRepository, blobs BlobStore, feed *ScoreFeed) *QuizService {
	if feed == nil {
		feed = NewScoreFeed()
	}
	return &QuizService{store: store, quizzes: quizzes, blobs: blobs, feed: feed}
}

// BlobKey is the storage key of the image attached to question index of quizID.
func BlobKey(quizID int64, index int, filename string) string {
	return fmt.Sprintf("quiz_%d_q%d_%s", quizID, index, filename)
}

// ListQuizzes returns every quiz in id order.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		config.WithContext(ctx).WithError(err).Error("list quizzes failed")
		return nil, &domain.StorageError{Err: err}
	}
	return quizzes, nil
}

// CreateQuiz writes the quiz, its questions and their images in one
// transaction. Nothing is visible if any step fails.
func (s *QuizService) CreateQuiz(ctx context.Context, title string, questions []domain.NewQuestion) (domain.Quiz, error) {
	log := config.WithContext(ctx)
	if err := validateQuiz(title, questions); err != nil {
		log.WithField("title", title).Warn(err.Error())
		return domain.Quiz{}, err
	}

	var (
		quiz      domain.Quiz
		uploaded  []string
		discarded bool
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx QuizWriter) error {
		var err error
		quiz, uploaded, err = s.writeQuiz(ctx, tx, title, questions)
		if err != nil {
			// before rollback: the quiz id may be handed out again once it is released
			s.discardBlobs(ctx, uploaded)
			discarded = true
		}
		return err
	})
	if err != nil {
		if !discarded {
			s.discardBlobs(ctx, uploaded)
		}
		var storageErr *domain.StorageError
		if !errors.As(err, &storageErr) {
			err = &domain.StorageError{Err: err}
		}
		log.WithError(err).Error("create quiz failed")
		return domain.Quiz{}, err
	}

	log.WithFields(logrus.Fields{
		"quiz_id":   quiz.ID,
		"questions": len(questions),
		"images":    len(uploaded),
	}).Info("quiz created")
	return quiz, nil
}

// writeQuiz inserts the quiz and its questions through tx, uploading images
// as it goes. It returns the keys uploaded so far even on failure.
func (s *QuizService) writeQuiz(ctx context.Context, tx QuizWriter, title string, questions []domain.NewQuestion) (domain.Quiz, []string, error) {
	var uploaded []string
	quizID, err := tx.InsertQuiz(ctx, title)
	if err != nil {
		return domain.Quiz{}, nil, &domain.StorageError{Err: err}
	}

	for i, nq := range questions {
		question := domain.Question{
			QuizID:        quizID,
			Text:          nq.Text,
			CorrectAnswer: nq.CorrectAnswer,
		}
		if nq.Image != nil && nq.Image.Filename != "" {
			key := BlobKey(quizID, i, nq.Image.Filename)
			if err := s.blobs.Put(ctx, key, nq.Image.Content); err != nil {
				return domain.Quiz{}, uploaded, &domain.StorageError{File: nq.Image.Filename, Err: err}
			}
			uploaded = append(uploaded, key)
			question.ImageFilename = key
		}
		if _, err := tx.InsertQuestion(ctx, question); err != nil {
			return domain.Quiz{}, uploaded, &domain.StorageError{Err: err}
		}
	}
	return domain.Quiz{ID: quizID, Title: title}, uploaded, nil
}

// GetQuiz returns the quiz header.
func (s *QuizService) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	qw, err := s.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return qw.Quiz, nil
}

// GetQuizWithQuestions returns the quiz and its questions in insertion order.
func (s *QuizService) GetQuizWithQuestions(ctx context.Context, quizID int64) (domain.QuizWithQuestions, error) {
	qw, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.QuizWithQuestions{}, domain.ErrQuizNotFound
		}
		config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Error("load quiz failed")
		return domain.QuizWithQuestions{}, &domain.StorageError{Err: err}
	}
	return qw, nil
}

// GradeAndRecord counts the answers matching the stored correct answers and
// records the result. answers is keyed by question id; missing entries are wrong.
func (s *QuizService) GradeAndRecord(ctx context.Context, quizID int64, pseudo string, answers map[int64]string) (domain.Score, error) {
	log := config.WithContext(ctx)
	if pseudo == "" {
		err := domain.NewValidationError("Veuillez entrer un pseudo pour continuer.")
		log.WithField("quiz_id", quizID).Warn(err.Error())
		return domain.Score{}, err
	}

	qw, err := s.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return domain.Score{}, err
	}

	total := Grade(qw.Questions, answers)
	id, err := s.store.InsertScore(ctx, quizID, pseudo, total)
	if err != nil {
		log.WithError(err).WithField("quiz_id", quizID).Error("record score failed")
		return domain.Score{}, &domain.StorageError{Err: err}
	}

	score := domain.Score{ID: id, QuizID: quizID, Pseudo: pseudo, UserScore: total}
	s.feed.Publish(score)
	log.WithFields(logrus.Fields{
		"quiz_id": quizID,
		"score":   total,
		"of":      len(qw.Questions),
	}).Info("score recorded")
	return score, nil
}

// ListScores returns the recorded scores of a quiz in insertion order.
func (s *QuizService) ListScores(ctx context.Context, quizID int64) ([]domain.Score, error) {
	if _, err := s.GetQuizWithQuestions(ctx, quizID); err != nil {
		return nil, err
	}
	scores, err := s.store.ListScores(ctx, quizID)
	if err != nil {
		config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Error("list scores failed")
		return nil, &domain.StorageError{Err: err}
	}
	return scores, nil
}

// SubscribeScores returns a channel receiving scores recorded for the quiz
// from now on. The caller must invoke the returned cancel function.
func (s *QuizService) SubscribeScores(ctx context.Context, quizID int64) (<-chan domain.Score, func(), error) {
	if _, err := s.GetQuizWithQuestions(ctx, quizID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(quizID)
	return ch, cancel, nil
}

// Grade returns the number of questions whose submitted answer equals the
// correct one, ignoring case and surrounding whitespace.
func Grade(questions []domain.Question, answers map[int64]string) int {
	score := 0
	for _, q := range questions {
		submitted, ok := answers[q.ID]
		if !ok {
			continue
		}
		if domain.NormalizeAnswer(submitted) == domain.NormalizeAnswer(q.CorrectAnswer) {
			score++
		}
	}
	return score
}

func validateQuiz(title string, questions []domain.NewQuestion) error {
	if strings.TrimSpace(title) == "" || len(questions) == 0 {
		return domain.NewValidationError("Formulaire incomplet. Veuillez remplir tous les champs.")
	}
	for _, q := range questions {
		if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.CorrectAnswer) == "" {
			return domain.NewValidationError("Formulaire incomplet. Chaque question doit avoir un énoncé et une réponse.")
		}
	}
	return nil
}

// discardBlobs removes images written by a failed creation. Best effort.
func (s *QuizService) discardBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			config.WithContext(ctx).WithError(err).WithField("key", key).Warn("discard blob failed")
		}
	}
}

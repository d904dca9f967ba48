package domain

import (
	"io"
	"strings"
)

// Quiz is a named collection of questions.
type Quiz struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Question is a prompt with its expected answer and an optional image blob key.
type Question struct {
	ID            int64  `json:"id"`
	QuizID        int64  `json:"quizId"`
	Text          string `json:"questionText"`
	CorrectAnswer string `json:"correctAnswer"`
	ImageFilename string `json:"imageFilename,omitempty"` // empty when no image
}

// HasImage reports whether the question references a stored blob.
func (q Question) HasImage() bool {
	return q.ImageFilename != ""
}

// Score is one recorded attempt at a quiz.
type Score struct {
	ID        int64  `json:"id"`
	QuizID    int64  `json:"quizId"`
	Pseudo    string `json:"pseudo"`
	UserScore int    `json:"userScore"`
}

// QuizWithQuestions is a quiz together with its questions in id order.
type QuizWithQuestions struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// NewQuestion is the input for one question during quiz creation.
type NewQuestion struct {
	Text          string
	CorrectAnswer string
	Image         *ImageUpload // nil when no file was attached
}

// ImageUpload carries the bytes of an attached image and its original file name.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// NormalizeAnswer folds an answer for comparison: surrounding whitespace
// is ignored and letters are lowercased.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

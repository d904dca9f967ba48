package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"

	"github.com/gorilla/mux"

	"quiz-hosting/internal/app"
	"quiz-hosting/internal/config"
	"quiz-hosting/internal/domain"
)

const maxUploadSize = 32 << 20

// Handler serves the HTML pages of the quiz site.
type Handler struct {
	service *app.QuizService
	blobs   app.BlobStore
	views   *Renderer
}

func NewHandler(service *app.QuizService, blobs app.BlobStore, views *Renderer) *Handler {
	return &Handler{service: service, blobs: blobs, views: views}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "index.html", indexView{Quizzes: quizzes})
}

func (h *Handler) CreateQuizForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "create_quiz.html", nil)
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	form, err := readCreateForm(r)
	if err != nil {
		config.WithContext(r.Context()).WithError(err).Warn("read create form failed")
		http.Error(w, "Formulaire invalide.", http.StatusBadRequest)
		return
	}

	n := len(form.texts)
	if len(form.answers) < n {
		n = len(form.answers)
	}
	questions := make([]domain.NewQuestion, 0, n)
	for i := 0; i < n; i++ {
		q := domain.NewQuestion{Text: form.texts[i], CorrectAnswer: form.answers[i]}
		if i < len(form.images) {
			q.Image = form.images[i]
		}
		questions = append(questions, q)
	}

	if _, err := h.service.CreateQuiz(r.Context(), form.title, questions); err != nil {
		writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type createForm struct {
	title   string
	texts   []string
	answers []string
	// images[i] belongs to the i-th question; nil when its file input was left empty
	images []*domain.ImageUpload
}

var errFormTooLarge = errors.New("form exceeds upload limit")

// readCreateForm walks the parts in submission order so an empty file input
// keeps its slot in the image list.
func readCreateForm(r *http.Request) (createForm, error) {
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return createForm{}, err
		}
		return createForm{
			title:   r.PostForm.Get("title"),
			texts:   r.PostForm["question"],
			answers: r.PostForm["answer"],
		}, nil
	}
	if err != nil {
		return createForm{}, err
	}

	var form createForm
	remaining := int64(maxUploadSize)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return createForm{}, err
		}
		data, err := io.ReadAll(io.LimitReader(part, remaining+1))
		part.Close()
		if err != nil {
			return createForm{}, err
		}
		remaining -= int64(len(data))
		if remaining < 0 {
			return createForm{}, errFormTooLarge
		}

		switch part.FormName() {
		case "title":
			form.title = string(data)
		case "question":
			form.texts = append(form.texts, string(data))
		case "answer":
			form.answers = append(form.answers, string(data))
		case "image":
			var img *domain.ImageUpload
			if name := part.FileName(); name != "" {
				img = &domain.ImageUpload{Filename: name, Content: bytes.NewReader(data)}
			}
			form.images = append(form.images, img)
		}
	}
}

func (h *Handler) ShowQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	qw, err := h.service.GetQuizWithQuestions(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "quiz.html", quizView{Quiz: qw.Quiz, Questions: qw.Questions})
}

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Formulaire invalide.", http.StatusBadRequest)
		return
	}

	pseudo := r.PostForm.Get("pseudo")
	answers := make(map[int64]string, len(r.PostForm))
	for key, values := range r.PostForm {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || len(values) == 0 {
			continue
		}
		answers[id] = values[0]
	}

	// an unknown quiz answers 404 before the pseudo is checked
	if _, err := h.service.GetQuiz(r.Context(), quizID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	score, err := h.service.GradeAndRecord(r.Context(), quizID, pseudo, answers)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	target := fmt.Sprintf("/result/%d/%d?%s", quizID, score.UserScore, url.Values{"pseudo": {pseudo}}.Encode())
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	score, err := strconv.Atoi(mux.Vars(r)["score"])
	if err != nil || score < 0 {
		http.NotFound(w, r)
		return
	}
	pseudo := r.URL.Query().Get("pseudo")
	if pseudo == "" {
		pseudo = "Unknown"
	}

	quiz, err := h.service.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "result.html", resultView{Quiz: quiz, Score: score, Pseudo: pseudo})
}

func (h *Handler) Scores(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	scores, err := h.service.ListScores(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "scores.html", scoresView{Quiz: quiz, Scores: scores})
}

// Image streams a stored blob when the blob backend can read content back.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	opener, ok := h.blobs.(app.BlobOpener)
	if !ok {
		http.NotFound(w, r)
		return
	}
	key := mux.Vars(r)["key"]
	rc, err := opener.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		config.WithContext(r.Context()).WithError(err).WithField("key", key).Error("open blob failed")
		http.Error(w, "image unavailable", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, rc); err != nil {
		config.WithContext(r.Context()).WithError(err).WithField("key", key).Warn("stream blob failed")
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		storageErr    *domain.StorageError
	)
	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Message, http.StatusBadRequest)
	case errors.Is(err, domain.ErrQuizNotFound):
		http.NotFound(w, r)
	case errors.As(err, &storageErr):
		http.Error(w, storageErr.Error(), http.StatusInternalServerError)
	default:
		config.WithContext(r.Context()).WithError(err).Error("request failed")
		http.Error(w, "Erreur interne.", http.StatusInternalServerError)
	}
}

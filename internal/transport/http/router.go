package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the HTML pages, image serving and the live score feed.
func NewRouter(h *Handler, ws *WSHandler) http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware, recoverMiddleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/create-quiz", h.CreateQuizForm).Methods(http.MethodGet)
	r.HandleFunc("/create-quiz", h.CreateQuiz).Methods(http.MethodPost)
	r.HandleFunc("/quiz/{id}", h.ShowQuiz).Methods(http.MethodGet)
	r.HandleFunc("/quiz/{id}", h.SubmitQuiz).Methods(http.MethodPost)
	r.HandleFunc("/result/{id}/{score}", h.Result).Methods(http.MethodGet)
	r.HandleFunc("/scores/{id}", h.Scores).Methods(http.MethodGet)
	r.HandleFunc("/images/{key}", h.Image).Methods(http.MethodGet)

	if ws != nil {
		r.HandleFunc("/ws/scores/{id}", ws.ServeWS).Methods(http.MethodGet)
	}
	return r
}

package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
	// RequestTimeout bounds every request; it should exceed the model timeout.
	RequestTimeout time.Duration
	// AccessLog receives one line per request. Nil disables request logging.
	AccessLog *log.Logger
}

func NewRouter(apiHandler *APIHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.AccessLog != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: opts.AccessLog, NoColor: true}))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/getQuestion", apiHandler.GetQuestionHandler)
	r.Post("/chat", apiHandler.ChatHandler)
	r.Post("/assist", apiHandler.AssistHandler)

	r.Get("/health", apiHandler.HealthHandler)
	r.Get("/health/model", apiHandler.ModelHealthHandler)

	return r
}

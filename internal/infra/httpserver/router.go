package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalyses "github.com/ahmad9059/sehatscan/internal/application/analyses"
	appassistant "github.com/ahmad9059/sehatscan/internal/application/assistant"
	appdigest "github.com/ahmad9059/sehatscan/internal/application/digest"
	domain "github.com/ahmad9059/sehatscan/internal/domain/analysis"
	"github.com/ahmad9059/sehatscan/internal/domain/outcome"
	"github.com/ahmad9059/sehatscan/internal/middleware"
)

const maxUploadMemory = 32 << 20

type Router struct {
	analysesSvc  *appanalyses.Service
	digestSvc    *appdigest.Service
	assistantSvc *appassistant.Service
}

func NewRouter(analysesSvc *appanalyses.Service, digestSvc *appdigest.Service, assistantSvc *appassistant.Service, health http.HandlerFunc) http.Handler {
	r := &Router{analysesSvc: analysesSvc, digestSvc: digestSvc, assistantSvc: assistantSvc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	if health != nil {
		mux.Get("/health", health)
	} else {
		mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
	}
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze/face", r.handleAnalyzeFace)
		rt.Post("/analyze/report", r.handleAnalyzeReport)
		rt.Post("/analyze/risk", r.handleAssessRisk)
		rt.Get("/analyses", r.wrap(r.handleListAnalyses))
		rt.Get("/analyses/{id}", r.wrap(r.handleGetAnalysis))
		rt.Delete("/analyses/{id}", r.wrap(r.handleDeleteAnalysis))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/stats", r.wrap(r.handleStats))
		rt.Post("/chat", r.handleChat)
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, errUnauthenticated) {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

var errUnauthenticated = errors.New("unauthenticated")

func ownerFrom(req *http.Request) (string, error) {
	owner := middleware.GetUserFromContext(req.Context())
	if owner == "" {
		return "", errUnauthenticated
	}
	return owner, nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(kind outcome.ErrorKind) int {
	switch kind {
	case outcome.KindValidation:
		return http.StatusBadRequest
	case outcome.KindAuth:
		return http.StatusUnauthorized
	case outcome.KindNotFound:
		return http.StatusNotFound
	case outcome.KindRateLimit:
		return http.StatusTooManyRequests
	case outcome.KindTimeout:
		return http.StatusGatewayTimeout
	case outcome.KindNetwork, outcome.KindService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeOutcome(w http.ResponseWriter, o outcome.Outcome) {
	w.Header().Set("Content-Type", "application/json")
	if !o.Success {
		w.WriteHeader(statusFor(o.ErrorKind))
	}
	_ = json.NewEncoder(w).Encode(o)
}

func trackAnalysisOutcome(o outcome.Outcome) {
	switch {
	case o.Success && o.SaveWarning != "":
		middleware.IncrementAnalyses()
		middleware.IncrementAnalysesDegraded()
	case o.Success:
		middleware.IncrementAnalyses()
	default:
		middleware.IncrementInferenceFailures()
	}
}

// readArtifact pulls the uploaded file out of a multipart form. A
// missing or unreadable file yields a nil artifact, which the validator
// turns into its "no file provided" failure.
func readArtifact(req *http.Request) *domain.Artifact {
	if err := req.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil
	}
	return &domain.Artifact{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}
}

// POST /v1/analyze/face
func (r *Router) handleAnalyzeFace(w http.ResponseWriter, req *http.Request) {
	res := r.analysesSvc.AnalyzeFace(req.Context(), readArtifact(req))
	trackAnalysisOutcome(res)
	writeOutcome(w, res)
}

// POST /v1/analyze/report
func (r *Router) handleAnalyzeReport(w http.ResponseWriter, req *http.Request) {
	res := r.analysesSvc.AnalyzeReport(req.Context(), readArtifact(req))
	trackAnalysisOutcome(res)
	writeOutcome(w, res)
}

// POST /v1/analyze/risk
// Body: {"report_analysis_id": "...", "face_analysis_id": "...", "user_data": {...}}
func (r *Router) handleAssessRisk(w http.ResponseWriter, req *http.Request) {
	var cmd appanalyses.RiskCommand
	if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
		writeOutcome(w, outcome.Fail(outcome.KindValidation, "invalid request body"))
		return
	}
	res := r.analysesSvc.AssessRisk(req.Context(), cmd)
	trackAnalysisOutcome(res)
	writeOutcome(w, res)
}

// GET /v1/analyses?kind=&page=&page_size=
func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	owner, err := ownerFrom(req)
	if err != nil {
		return err
	}
	kind := domain.Kind(req.URL.Query().Get("kind"))
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analysesSvc.List(req.Context(), owner, kind, page, size)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/analyses/{id}
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	owner, err := ownerFrom(req)
	if err != nil {
		return err
	}
	rec, err := r.analysesSvc.Get(req.Context(), owner, domain.AnalysisID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	if rec == nil {
		return sql.ErrNoRows
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(rec)
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDeleteAnalysis(w http.ResponseWriter, req *http.Request) error {
	owner, err := ownerFrom(req)
	if err != nil {
		return err
	}
	if err := r.analysesSvc.Delete(req.Context(), owner, domain.AnalysisID(chi.URLParam(req, "id"))); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	owner, err := ownerFrom(req)
	if err != nil {
		return err
	}
	text, err := r.digestSvc.Summarize(req.Context(), owner)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err = w.Write([]byte(text))
	return err
}

// GET /v1/stats
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	owner, err := ownerFrom(req)
	if err != nil {
		return err
	}
	stats, err := r.analysesSvc.Stats(req.Context(), owner)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(stats)
}

// POST /v1/chat
// Body: {"message": "..."}
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeOutcome(w, outcome.Fail(outcome.KindValidation, "invalid request body"))
		return
	}
	writeOutcome(w, r.assistantSvc.Chat(req.Context(), body.Message))
}

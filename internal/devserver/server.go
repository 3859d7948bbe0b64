// Package devserver is a local stand-in for the fortune backend. It serves
// the same two JSON contracts the client consumes, with canned data.
package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
)

// ConnectedSummary is returned by /api/chart so a client can tell the
// round trip worked.
const ConnectedSummary = "서버 연결에 성공했습니다! 이 메시지가 보이면 통신은 정상입니다."

type Server struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logger: logger}
}

// Routes builds the router: /api/chart, /api/ask and a /health heartbeat.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(s.requestLogger)
	r.Use(CORS([]string{"*"}))

	r.Post("/api/chart", s.handleChart)
	r.Post("/api/ask", s.handleAsk)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	var q chart.BirthQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := q.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, chart.Result{
		Summary: ConnectedSummary,
		Planets: []chart.Placement{
			{Name: "Sun", Sign: "Test Sign", House: "1 House"},
			{Name: "Moon", Sign: "Test Sign", House: "2 House"},
		},
	})
}

type askRequest struct {
	Question string            `json:"question"`
	Planets  []chart.Placement `json:"planets"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"answer": Answer(req.Question, req.Planets)})
}

// writeJSON encodes v with the given status. The status line is already
// sent when encoding fails, so the failure is only logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

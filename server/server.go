// Package server 暴露推荐查询的 HTTP 接口。
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rushteam/embedrec/core"
	"github.com/rushteam/embedrec/recommend"
)

// requestsTotal 按路径和状态码统计请求数。
var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "embedrec_http_requests_total",
	Help: "Total HTTP requests by path and status.",
}, []string{"path", "status"})

// Server 包装 Recommender 为 HTTP 服务。
type Server struct {
	rec    *recommend.Recommender
	cache  core.KeyValueStore // 可为 nil，此时直接查矩阵
	topN   int
	logger *zap.Logger
}

// New 创建 Server。cache 为 nil 时每次请求直接计算。
func New(rec *recommend.Recommender, cache core.KeyValueStore, topN int, logger *zap.Logger) *Server {
	if topN < 1 {
		topN = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{rec: rec, cache: cache, topN: topN, logger: logger}
}

// Router 构建路由。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)

	r.Get("/recommendations", s.handleRecommendations)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// handleRecommendations 处理 GET /recommendations?user_id=&top_n=。
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		s.writeError(w, r, http.StatusBadRequest, "user_id must be a positive integer")
		return
	}

	topN := s.topN
	if raw := r.URL.Query().Get("top_n"); raw != "" {
		topN, err = strconv.Atoi(raw)
		if err != nil || topN < 1 {
			s.writeError(w, r, http.StatusBadRequest, "top_n must be a positive integer")
			return
		}
	}

	ids, err := s.rec.RecommendCached(r.Context(), s.cache, userID, topN)
	if err != nil {
		if core.IsNotFound(err) {
			s.writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("recommendation failed", zap.Int64("user_id", userID), zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, r, http.StatusOK, s.rec.Decorate(ids))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, errorBody{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	requestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spigell/intern-radar/internal/ai"
	"github.com/spigell/intern-radar/internal/catalog"
	"github.com/spigell/intern-radar/internal/posting"
	"github.com/spigell/intern-radar/internal/scrape"
	"github.com/spigell/intern-radar/internal/tasks"
	"github.com/spigell/intern-radar/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string          `json:"error"`
	Summary *scrape.Summary `json:"summary,omitempty"`
}

type scrapeRequest struct {
	scrape.Request
	Background bool `json:"background"`
}

type matchRequest struct {
	posting.CandidateQuery
	TopK       int    `json:"top_k"`
	ResumeText string `json:"resume_text,omitempty"`
}

type matchResponse struct {
	Count   int                    `json:"count"`
	Query   posting.CandidateQuery `json:"query"`
	Matches []posting.MatchResult  `json:"matches"`
}

type listResponse struct {
	Count       int            `json:"count"`
	Internships []catalog.Item `json:"internships"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Background {
		if s.deps.Tasks == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("background tasks are disabled"))
			return
		}
		task, err := s.deps.Tasks.Submit(r.Context(), req.Request)
		switch {
		case errors.Is(err, tasks.ErrQueueFull), errors.Is(err, tasks.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err)
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusAccepted, task)
		return
	}

	summary, err := s.deps.Scraper.Run(r.Context(), req.Request)
	if err != nil {
		s.logger.Warn("scrape request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Summary: summary})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tasks == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("background tasks are disabled"))
		return
	}

	task, err := s.deps.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, task)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := catalog.ListParams{
		Domain:     strings.TrimSpace(q.Get("domain")),
		Experience: strings.TrimSpace(q.Get("experience")),
		Search:     strings.TrimSpace(q.Get("search")),
		Sort:       strings.TrimSpace(q.Get("sort")),
		Limit:      clampInt(q.Get("limit"), catalog.DefaultLimit, 500),
	}

	items, err := s.deps.Catalog.List(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Count: len(items), Internships: items})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Stats(r.Context()))
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Catalog.CleanExpired(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !s.decode(w, r, &req) {
		return
	}

	query := req.CandidateQuery
	query.Skills = utils.SplitList(query.Skills...)
	query.Domains = utils.SplitList(query.Domains...)
	ai.EnrichQuery(r.Context(), s.deps.Extractor, s.logger, &query, req.ResumeText)

	if strings.TrimSpace(query.Text()) == "" {
		writeError(w, http.StatusBadRequest, errors.New("candidate profile is empty"))
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.opts.DefaultTopK
	}
	topK = min(topK, s.opts.MaxTopK)

	matches := s.deps.Recommender.Recommend(r.Context(), query, topK)
	writeJSON(w, http.StatusOK, matchResponse{Count: len(matches), Query: query, Matches: matches})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func clampInt(raw string, fallback, limit int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return min(value, limit)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

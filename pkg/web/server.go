package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/gene2go-expander/pkg/annotation"
	"github.com/ritzau/gene2go-expander/pkg/closure"
	"github.com/ritzau/gene2go-expander/pkg/logging"
	"github.com/ritzau/gene2go-expander/pkg/metrics"
	"github.com/ritzau/gene2go-expander/pkg/pipeline"
	"github.com/ritzau/gene2go-expander/pkg/pubsub"
	"github.com/ritzau/gene2go-expander/pkg/summary"
)

// StatusResponse describes the last completed run
type StatusResponse struct {
	State     string          `json:"state"` // "idle" until the first run completes, then "ready"
	RunID     string          `json:"run_id,omitempty"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	Duration  int64           `json:"duration_ms,omitempty"`
	Stats     *pipeline.Stats `json:"stats,omitempty"`
	Cycles    [][]string      `json:"cycles,omitempty"`
	Artifacts []string        `json:"artifacts,omitempty"`

	// Current is the latest published run status, which may belong to a
	// run still in progress
	Current *pubsub.RunStatus `json:"current,omitempty"`
}

// TermResponse describes one ontology term
type TermResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Namespace   string   `json:"namespace,omitempty"`
	Implicit    bool     `json:"implicit,omitempty"` // Referenced as a parent but never defined
	Parents     []string `json:"parents"`
	Children    []string `json:"children"`
	Descendants []string `json:"descendants"` // Full closure, including the term
	Expanded    bool     `json:"expanded"`    // Closure passed max-child-num
	Genes       int      `json:"genes"`       // Genes annotated with the term after expansion
}

// GeneResponse describes one gene's annotations
type GeneResponse struct {
	Summary     summary.GeneSummary `json:"summary"`
	Annotations []GeneAnnotation    `json:"annotations"`
}

// GeneAnnotation is a row of the expanded table
type GeneAnnotation struct {
	annotation.Record
	Propagated bool `json:"propagated"`
}

// resultView is a completed run with the lookups the handlers need.
type resultView struct {
	res       *pipeline.Result
	genes     map[summary.Key]summary.GeneSummary
	geneRows  map[summary.Key][]int
	termGenes map[string]int
	kept      map[string]bool
}

func newResultView(res *pipeline.Result) *resultView {
	v := &resultView{
		res:       res,
		genes:     summary.Index(res.Summaries),
		geneRows:  make(map[summary.Key][]int),
		termGenes: make(map[string]int),
		kept:      make(map[string]bool, len(res.Entries)),
	}

	seen := make(map[[2]string]bool)
	for i, r := range res.Expanded.Records {
		k := summary.Key{TaxID: r.TaxID, GeneID: r.GeneID}
		v.geneRows[k] = append(v.geneRows[k], i)

		tg := [2]string{r.GOID, strconv.Itoa(r.TaxID) + "/" + r.GeneID}
		if !seen[tg] {
			seen[tg] = true
			v.termGenes[r.GOID]++
		}
	}
	for _, e := range res.Entries {
		v.kept[e.Term] = true
	}
	return v
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.Broker

	mu   sync.RWMutex
	view *resultView
}

// NewServer creates a new web server
func NewServer() *Server {
	s := &Server{
		router:    mux.NewRouter(),
		publisher: pubsub.NewBroker(),
	}
	s.setupRoutes()
	return s
}

// SetResult replaces the run served by the API
func (s *Server) SetResult(res *pipeline.Result) {
	if res == nil {
		return
	}
	v := newResultView(res)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

func (s *Server) current() *resultView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// PublishRunStatus publishes a run status event
func (s *Server) PublishRunStatus(status pubsub.RunStatus) error {
	return s.publisher.PublishRunStatus(status)
}

// Handler returns the router wrapped in the request logging middleware
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/run_status", s.handleSubscribeRunStatus).Methods("GET")

	s.router.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/terms/{id}", s.handleTerm).Methods("GET")
	s.router.HandleFunc("/api/genes/{taxID}/{geneID}", s.handleGene).Methods("GET")

	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("could not encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleSubscribeRunStatus(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Create subscription
	sub, err := s.publisher.Subscribe(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	// Stream events until the client goes away or the publisher closes
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var current *pubsub.RunStatus
	if status, ok := s.publisher.Latest(); ok {
		current = &status
	}

	v := s.current()
	if v == nil {
		writeJSON(w, http.StatusOK, StatusResponse{State: pubsub.StateIdle, Current: current})
		return
	}

	res := v.res
	cycles := make([][]string, 0, len(res.Cycles))
	for _, c := range res.Cycles {
		cycles = append(cycles, c.Terms)
	}
	started := res.StartedAt
	stats := res.Stats
	writeJSON(w, http.StatusOK, StatusResponse{
		State:     pubsub.StateReady,
		RunID:     res.RunID,
		StartedAt: &started,
		Duration:  res.Duration.Milliseconds(),
		Stats:     &stats,
		Cycles:    cycles,
		Artifacts: res.Artifacts,
		Current:   current,
	})
}

func (s *Server) handleTerm(w http.ResponseWriter, r *http.Request) {
	v := s.current()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
		return
	}

	id := mux.Vars(r)["id"]
	term, ok := v.res.Ontology.Term(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown term %s", id))
		return
	}

	descendants := v.res.Closure[id]
	if descendants == nil {
		descendants = closure.Descendants(v.res.Graph, id)
	}

	writeJSON(w, http.StatusOK, TermResponse{
		ID:          term.ID,
		Name:        term.Name,
		Namespace:   term.Namespace,
		Implicit:    term.Implicit,
		Parents:     nonNil(v.res.Graph.Parents(id)),
		Children:    nonNil(v.res.Graph.Children(id)),
		Descendants: nonNil(descendants),
		Expanded:    v.kept[id],
		Genes:       v.termGenes[id],
	})
}

func (s *Server) handleGene(w http.ResponseWriter, r *http.Request) {
	v := s.current()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, "no completed run yet")
		return
	}

	vars := mux.Vars(r)
	taxID, err := strconv.Atoi(vars["taxID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("tax id %q is not an integer", vars["taxID"]))
		return
	}

	key := summary.Key{TaxID: taxID, GeneID: vars["geneID"]}
	g, ok := v.genes[key]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no annotations for gene %d/%s", taxID, key.GeneID))
		return
	}

	firstAppended := v.res.Expanded.Len() - v.res.Stats.Expansion.Appended
	rows := v.geneRows[key]
	resp := GeneResponse{Summary: g, Annotations: make([]GeneAnnotation, 0, len(rows))}
	for _, i := range rows {
		resp.Annotations = append(resp.Annotations, GeneAnnotation{
			Record:     v.res.Expanded.Records[i],
			Propagated: i >= firstAppended,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Start serves on port until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := logging.New("web")
	errc := make(chan error, 1)
	go func() {
		log.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// Close SSE streams first so Shutdown does not wait on them
	_ = s.publisher.Close()

	log.Info("stopping web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down the event publisher
func (s *Server) Close() error {
	return s.publisher.Close()
}

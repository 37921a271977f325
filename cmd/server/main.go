// Command server exposes the graph validator and evaluation engine over HTTP
// for an external editor or backtest UI.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/strategraph-lab/strategraph/internal/engine"
	engine_v1 "github.com/strategraph-lab/strategraph/internal/engine/engine_v1"
	"github.com/strategraph-lab/strategraph/internal/engine/engine_v1/datasource"
	"github.com/strategraph-lab/strategraph/internal/feed"
	"github.com/strategraph-lab/strategraph/internal/graph"
	"github.com/strategraph-lab/strategraph/internal/logger"
	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
	"go.uber.org/zap"
)

type server struct {
	log     *logger.Logger
	catalog *graph.Catalog
}

type validateRequest struct {
	Graph json.RawMessage `json:"graph"`
}

type validateResponse struct {
	OK       bool            `json:"ok"`
	Findings []types.Finding `json:"findings"`
}

type runRequest struct {
	Graph  json.RawMessage        `json:"graph"`
	Config string                 `json:"config,omitempty"`
	Ticks  []types.Tick           `json:"ticks,omitempty"`
	Feed   *feed.RandomWalkConfig `json:"feed,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Code:  int(errors.GetCode(err)),
	})
}

// handleValidate parses a serialized graph (enforcing the schema version
// gate) and returns the validator's findings.
func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeGraphParseFailed, "invalid request body", err))

		return
	}

	g, err := graph.Unmarshal(req.Graph)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	result := graph.Validate(g)

	findings := result.Findings
	if findings == nil {
		findings = []types.Finding{}
	}

	s.writeJSON(w, http.StatusOK, validateResponse{OK: result.IsOK(), Findings: findings})
}

// handleRun evaluates a graph against inline ticks or a feed spec and returns
// the run result.
func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeGraphParseFailed, "invalid request body", err))

		return
	}

	g, err := graph.Unmarshal(req.Graph)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	source, err := s.buildSource(&req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}
	defer source.Close()

	eng := engine_v1.NewEvalEngineV1()
	if err := eng.Initialize(req.Config); err != nil {
		s.writeError(w, http.StatusBadRequest, err)

		return
	}

	if err := eng.LoadGraph(g); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)

		return
	}

	if err := eng.SetDataSource(source); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)

		return
	}

	result, err := eng.Run(r.Context(), optional.None[engine.OnTickCallback]())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.HasCode(err, errors.ErrCodeEngineNotValidated) {
			status = http.StatusUnprocessableEntity
		}

		s.writeError(w, status, err)

		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *server) buildSource(req *runRequest) (datasource.TickSource, error) {
	if len(req.Ticks) > 0 {
		return feed.NewSliceSource(req.Ticks), nil
	}

	if req.Feed != nil {
		return feed.NewRandomWalk(*req.Feed), nil
	}

	return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "request carries neither ticks nor a feed spec")
}

// handleCatalog returns the node template library so an editor can render the
// palette.
func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalog.Templates())
}

func (s *server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/v1/catalog", s.handleCatalog).Methods("GET")
	router.HandleFunc("/api/v1/validate", s.handleValidate).Methods("POST")
	router.HandleFunc("/api/v1/run", s.handleRun).Methods("POST")

	return router
}

func main() {
	// Optional .env for local overrides; missing file is fine.
	_ = godotenv.Load()

	appLogger, err := logger.NewLogger()
	if err != nil {
		log.Fatal(err)
	}

	addr := os.Getenv("STRATEGRAPH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	s := &server{
		log:     appLogger,
		catalog: graph.NewCatalog(),
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	appLogger.Info("Server listening", zap.String("addr", addr))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		appLogger.Error("Server stopped", zap.Error(err))
		os.Exit(1)
	}
}

// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-kcal-log/internal/tracker"
)

type Config struct {
	Addr             string
	RolloverInterval time.Duration
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type KcalLogServer struct {
	httpServer *http.Server
	tracker    *tracker.Tracker
	tools      map[string]toolHandler
	config     *Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewKcalLogServer(cfg *Config, t *tracker.Tracker) *KcalLogServer {
	s := &KcalLogServer{
		tracker: t,
		config:  cfg,
	}
	s.registerTools()

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the tool endpoint, mainly for tests.
func (s *KcalLogServer) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *KcalLogServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		log.Printf("server: tool %s failed: %v", request.Name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}

// Start runs the rollover loop and serves until Stop is called.
func (s *KcalLogServer) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		RunRolloverLoop(loopCtx, s.config.RolloverInterval, s.tracker.OnAppBecomesActive)
	}()

	log.Printf("Starting kcal log server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *KcalLogServer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *KcalLogServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}

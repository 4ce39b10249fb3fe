package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"gauntlet/internal/db"
	"gauntlet/internal/logger"
	"gauntlet/internal/run"
	"gauntlet/internal/workload"
)

// Server はラン状態を公開するAPIサーバー
type Server struct {
	addr string

	mu         sync.RWMutex
	running    bool
	current    *run.Test
	lastResult *run.Result
	wsClients  map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string) *Server {
	return &Server{
		addr:      addr,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Start はサーバーを開始する
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/nodes", s.handleNodes)
	mux.HandleFunc("/api/workloads", s.handleWorkloads)
	mux.HandleFunc("/api/patches", s.handlePatches)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/result", s.handleResult)
	mux.HandleFunc("/api/run/start", s.handleRunStart)
	mux.HandleFunc("/metrics", s.handlePromMetrics)

	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	logger.Info("api", "server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running      bool   `json:"running"`
	RunID        string `json:"run_id,omitempty"`
	Workload     string `json:"workload,omitempty"`
	Build        string `json:"build,omitempty"`
	NodeCount    int    `json:"node_count"`
	RunningNodes int    `json:"running_nodes"`
	Partitioned  bool   `json:"partitioned"`
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{Running: s.running}
	if s.current != nil {
		resp.RunID = s.current.ID
		resp.Workload = s.current.Workload.Name
		resp.Build = s.current.Build.ID
		resp.NodeCount = s.current.Cluster.Size()
		resp.RunningNodes = s.current.Cluster.RunningCount()
		resp.Partitioned = s.current.Cluster.Partitioned()
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.status())
}

// NodeInfo はノード情報
type NodeInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Size   int    `json:"size"`
	Offset string `json:"clock_offset,omitempty"`
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var nodes []NodeInfo
	if s.current != nil {
		for _, n := range s.current.Cluster.Nodes() {
			info := NodeInfo{
				ID:     n.ID(),
				Status: n.Status().String(),
				Size:   n.Size(),
			}
			if d := n.ClockOffset(); d != 0 {
				info.Offset = d.String()
			}
			nodes = append(nodes, info)
		}
	}
	s.writeJSON(w, nodes)
}

func (s *Server) handleWorkloads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, workload.DefaultRegistry().Names())
}

func (s *Server) handlePatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, db.PatchNames())
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, run.PresetNames())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	result := s.lastResult
	s.mu.RUnlock()

	if result == nil {
		http.Error(w, "No completed run", http.StatusNotFound)
		return
	}
	s.writeJSON(w, result)
}

// RunRequest はラン開始リクエスト
type RunRequest struct {
	Preset    string `json:"preset,omitempty"`
	Patch     string `json:"patch,omitempty"`
	Workload  string `json:"workload,omitempty"`
	Nodes     int    `json:"nodes,omitempty"`
	TimeLimit string `json:"time_limit,omitempty"`
}

func (s *Server) handleRunStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	busy := s.running
	s.mu.RUnlock()
	if busy {
		http.Error(w, "Run already in progress", http.StatusConflict)
		return
	}

	opts := run.DefaultOptions()
	if req.Preset != "" {
		var err error
		opts, err = run.ApplyPreset(req.Preset, opts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Patch != "" {
		opts.Patch = req.Patch
	}
	if req.Workload != "" {
		opts.Workload = req.Workload
	}
	if req.Nodes > 0 {
		opts.Nodes = req.Nodes
	}
	if req.TimeLimit != "" {
		d, err := time.ParseDuration(req.TimeLimit)
		if err != nil {
			http.Error(w, "Invalid time_limit", http.StatusBadRequest)
			return
		}
		opts.TimeLimit = d
	}

	test, err := run.Assemble(opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "Run already in progress", http.StatusConflict)
		return
	}
	s.running = true
	s.current = test
	s.mu.Unlock()

	// バスのイベントをWebSocketへ転送する
	events := test.Bus.Subscribe()
	go func() {
		for ev := range events {
			s.broadcast(ev)
		}
	}()

	go func() {
		result, err := run.NewRunner(test).Run(context.Background())

		s.mu.Lock()
		s.running = false
		if result != nil {
			s.lastResult = result
		}
		s.mu.Unlock()
		test.Bus.Close()

		if err != nil {
			logger.Error("api", "run %s failed: %v", test.ID, err)
		} else {
			logger.Info("api", "run %s completed: valid=%t", test.ID, result.Valid)
		}
	}()

	s.writeJSON(w, map[string]string{"status": "started", "run_id": test.ID})
}

// handlePromMetrics は現在のランのPrometheusレジストリを公開する
func (s *Server) handlePromMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == nil {
		http.Error(w, "No run assembled", http.StatusNotFound)
		return
	}
	promhttp.HandlerFor(current.Metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(data any) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("api", "failed to encode JSON: %v", err)
	}
}

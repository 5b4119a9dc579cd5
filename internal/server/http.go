package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rayan-Farhan/IELTS-tutor/internal/asr"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/conversation"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/metrics"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/tts"
)

const (
	serviceName    = "ielts-tutor-service"
	serviceVersion = "1.0.0"
)

// Responder generates the tutor's reply for a session
type Responder interface {
	Respond(ctx context.Context, sessionID, userText string) string
	Stats() conversation.TutorStats
}

// Transcriber converts uploaded audio into a transcription result
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) asr.Result
	Stats() asr.Stats
}

// Synthesizer writes the per-session reply audio artifact
type Synthesizer interface {
	Synthesize(ctx context.Context, text, sessionID string) string
	Stats() tts.Stats
}

// HTTPServerConfig contains HTTP server configuration
type HTTPServerConfig struct {
	Port           int
	Address        string
	MaxUploadBytes int64
	AudioDir       string
}

// HTTPServer exposes the tutoring pipeline over HTTP. Downstream tool
// failures never fail a request: they surface as diagnostic text or empty
// fields inside a structured payload.
type HTTPServer struct {
	server      *http.Server
	logger      *slog.Logger
	config      HTTPServerConfig
	store       conversation.Store
	responder   Responder
	transcriber Transcriber
	synthesizer Synthesizer
	metrics     *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg HTTPServerConfig, logger *slog.Logger, store conversation.Store,
	responder Responder, transcriber Transcriber, synthesizer Synthesizer, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:      logger,
		config:      cfg,
		store:       store,
		responder:   responder,
		transcriber: transcriber,
		synthesizer: synthesizer,
		metrics:     m,
		startTime:   time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler: mux,
		// No per-request read/write deadlines beyond idle: transcription
		// and generation are long blocking calls.
		IdleTimeout: 60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/asr/transcribe", h.withMetrics("/api/asr/transcribe", h.handleTranscribe))
	mux.HandleFunc("/api/chat/respond", h.withMetrics("/api/chat/respond", h.handleChatRespond))
	mux.HandleFunc("/api/audio/", h.withMetrics("/api/audio/{filename}", h.handleAudio))

	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// wordTimestamp is one transcript segment in the transcription response
type wordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// transcribeResponse is the payload of POST /api/asr/transcribe
type transcribeResponse struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Timestamps []wordTimestamp `json:"timestamps"`
}

// chatResponse is the payload of POST /api/chat/respond
type chatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	AudioFile string `json:"audio_file"`
}

// handleTranscribe implements POST /api/asr/transcribe
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Audio file required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusBadRequest)
		return
	}

	h.logger.Info("Transcription request",
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(audio)),
	)

	start := time.Now()
	result := h.transcriber.Transcribe(r.Context(), audio)
	h.metrics.RecordTranscription(time.Since(start).Seconds(), result.Confidence, result.Text == "")

	resp := transcribeResponse{
		Text:       result.Text,
		Confidence: result.Confidence,
		Timestamps: make([]wordTimestamp, 0, len(result.Segments)),
	}
	for _, seg := range result.Segments {
		resp.Timestamps = append(resp.Timestamps, wordTimestamp{
			Word:  seg.Text,
			Start: seg.Start,
			End:   seg.End,
		})
	}

	writeJSON(w, resp)
}

// handleChatRespond implements POST /api/chat/respond
func (h *HTTPServer) handleChatRespond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userInput := r.FormValue("user_input")
	if userInput == "" {
		http.Error(w, "user_input is required", http.StatusBadRequest)
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	genStart := time.Now()
	reply := h.responder.Respond(r.Context(), sessionID, userInput)
	h.metrics.RecordGeneration(time.Since(genStart).Seconds())

	synthStart := time.Now()
	audioPath := h.synthesizer.Synthesize(r.Context(), reply, sessionID)
	h.metrics.RecordSynthesis(time.Since(synthStart).Seconds(), audioPath == "")

	h.metrics.SetSessions(h.store.Sessions())
	h.metrics.RecordTurns(2)

	// The payload carries a bare filename; clients fetch the audio from
	// /api/audio/{filename}. An empty value means no audio is available.
	var audioFile string
	if audioPath != "" {
		audioFile = filepath.Base(audioPath)
	}

	writeJSON(w, chatResponse{
		SessionID: sessionID,
		Response:  reply,
		AudioFile: audioFile,
	})
}

// handleAudio implements GET /api/audio/{filename}
func (h *HTTPServer) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/api/audio/")
	if filename == "" || filename != filepath.Base(filename) {
		http.Error(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(filepath.Join(h.config.AudioDir, filename))
	if err != nil {
		// Structured not-found payload, not a transport error.
		writeJSON(w, map[string]string{"error": "File not found"})
		return
	}

	contentType := "audio/wav"
	if strings.HasSuffix(strings.ToLower(filename), ".mp3") {
		contentType = "audio/mpeg"
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": map[string]interface{}{
			"conversation": map[string]interface{}{
				"status":   "running",
				"sessions": h.store.Sessions(),
			},
			"transcription": h.transcriber.Stats(),
			"generation":    h.responder.Stats(),
			"synthesis":     h.synthesizer.Stats(),
		},
	}

	writeJSON(w, health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":        time.Since(h.startTime).String(),
		"timestamp":     time.Now().UTC(),
		"sessions":      h.store.Sessions(),
		"generation":    h.responder.Stats(),
		"transcription": h.transcriber.Stats(),
		"synthesis":     h.synthesizer.Stats(),
	}

	writeJSON(w, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "AI IELTS Tutor",
		"version": serviceVersion,
		"endpoints": map[string]interface{}{
			"POST /api/asr/transcribe":  "Transcribe an uploaded audio file",
			"POST /api/chat/respond":    "Get the tutor's reply for a user utterance",
			"GET /api/audio/{filename}": "Fetch a generated reply audio file",
			"GET /health":               "Service health check",
			"GET /stats":                "Get service statistics",
			"GET /metrics":              "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, apiDoc)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

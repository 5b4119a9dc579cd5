package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Rayan-Farhan/IELTS-tutor/internal/asr"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/conversation"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/metrics"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/tts"
)

// Prometheus collectors register globally, so the test binary shares one set.
var testMetrics = metrics.NewMetrics()

type stubResponder struct {
	reply       string
	lastSession string
	lastText    string
}

func (s *stubResponder) Respond(_ context.Context, sessionID, userText string) string {
	s.lastSession = sessionID
	s.lastText = userText
	return s.reply
}

func (s *stubResponder) Stats() conversation.TutorStats { return conversation.TutorStats{} }

type stubTranscriber struct {
	result asr.Result
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte) asr.Result { return s.result }
func (s *stubTranscriber) Stats() asr.Stats                                  { return asr.Stats{} }

type stubSynthesizer struct {
	dir      string
	fail     bool
	lastText string
}

func (s *stubSynthesizer) Synthesize(_ context.Context, text, sessionID string) string {
	s.lastText = text
	if s.fail {
		return ""
	}
	return filepath.Join(s.dir, tts.ArtifactName(sessionID))
}

func (s *stubSynthesizer) Stats() tts.Stats { return tts.Stats{} }

type testServer struct {
	http        *HTTPServer
	store       *conversation.MemoryStore
	responder   *stubResponder
	transcriber *stubTranscriber
	synthesizer *stubSynthesizer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		store:       conversation.NewMemoryStore(),
		responder:   &stubResponder{reply: "Correct: \"Good\"\nContinue: \"Tell me more.\""},
		transcriber: &stubTranscriber{},
		synthesizer: &stubSynthesizer{dir: "data/output_audio"},
	}

	cfg := HTTPServerConfig{
		Port:           8000,
		Address:        "127.0.0.1",
		MaxUploadBytes: 10 << 20,
		AudioDir:       t.TempDir(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts.http = NewHTTPServer(cfg, logger, ts.store, ts.responder, ts.transcriber, ts.synthesizer, testMetrics)

	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.http.server.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestChatRespondGeneratesSessionID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(postForm("/api/chat/respond", url.Values{"user_input": {"Hello"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Errorf("expected generated UUID session id, got %q", resp.SessionID)
	}
	if resp.Response != ts.responder.reply {
		t.Errorf("unexpected response text: %q", resp.Response)
	}
	if resp.AudioFile != "tutor_reply_"+resp.SessionID+".mp3" {
		t.Errorf("expected bare artifact filename, got %q", resp.AudioFile)
	}
	if strings.ContainsRune(resp.AudioFile, filepath.Separator) {
		t.Error("audio_file must be a filename, not a path")
	}
	if ts.synthesizer.lastText != ts.responder.reply {
		t.Error("the reply text must be what gets synthesized")
	}
}

func TestChatRespondKeepsSessionID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(postForm("/api/chat/respond", url.Values{
		"user_input": {"I likes reading"},
		"session_id": {"abc123"},
	}))

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.SessionID != "abc123" {
		t.Errorf("expected session id to be kept, got %q", resp.SessionID)
	}
	if ts.responder.lastSession != "abc123" || ts.responder.lastText != "I likes reading" {
		t.Errorf("responder called with %q/%q", ts.responder.lastSession, ts.responder.lastText)
	}
}

func TestChatRespondRequiresUserInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(postForm("/api/chat/respond", url.Values{"session_id": {"abc"}}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing user_input, got %d", rec.Code)
	}
}

func TestChatRespondSynthesisFailureIsNotFatal(t *testing.T) {
	ts := newTestServer(t)
	ts.synthesizer.fail = true

	rec := ts.do(postForm("/api/chat/respond", url.Values{"user_input": {"Hello"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite synthesis failure, got %d", rec.Code)
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.AudioFile != "" {
		t.Errorf("expected empty audio_file, got %q", resp.AudioFile)
	}
	if resp.Response == "" {
		t.Error("the conversation turn must still return text")
	}
}

func multipartAudio(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	fw.Write(content)
	w.Close()

	return &buf, w.FormDataContentType()
}

func TestTranscribe(t *testing.T) {
	ts := newTestServer(t)
	ts.transcriber.result = asr.Result{
		Text:       "Hello there",
		Confidence: -0.25,
		Segments: []asr.Segment{
			{Text: "Hello there", Start: 0.0, End: 1.2},
		},
	}

	body, contentType := multipartAudio(t, "file", "sample.wav", []byte("fake-wav"))
	req := httptest.NewRequest(http.MethodPost, "/api/asr/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	rec := ts.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transcribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Text != "Hello there" || resp.Confidence != -0.25 {
		t.Errorf("unexpected payload: %+v", resp)
	}
	if len(resp.Timestamps) != 1 || resp.Timestamps[0].Word != "Hello there" {
		t.Errorf("unexpected timestamps: %+v", resp.Timestamps)
	}
}

func TestTranscribeEmptyResult(t *testing.T) {
	ts := newTestServer(t)
	ts.transcriber.result = asr.Result{Segments: []asr.Segment{}}

	body, contentType := multipartAudio(t, "file", "silence.wav", []byte("fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/asr/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	rec := ts.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty transcription, got %d", rec.Code)
	}

	var resp transcribeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Text != "" || resp.Confidence != 0.0 || len(resp.Timestamps) != 0 {
		t.Errorf("expected empty payload, got %+v", resp)
	}
}

func TestTranscribeRequiresFile(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartAudio(t, "wrong_field", "sample.wav", []byte("fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/asr/transcribe", body)
	req.Header.Set("Content-Type", contentType)

	if rec := ts.do(req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing file field, got %d", rec.Code)
	}
}

func TestFetchAudioMP3(t *testing.T) {
	ts := newTestServer(t)

	path := filepath.Join(ts.http.config.AudioDir, "tutor_reply_s1.mp3")
	if err := os.WriteFile(path, []byte("mp3-bytes"), 0644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/audio/tutor_reply_s1.mp3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %q", ct)
	}
	if rec.Body.String() != "mp3-bytes" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestFetchAudioWAVContentType(t *testing.T) {
	ts := newTestServer(t)

	path := filepath.Join(ts.http.config.AudioDir, "sample.wav")
	if err := os.WriteFile(path, []byte("wav-bytes"), 0644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/audio/sample.wav", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("expected audio/wav, got %q", ct)
	}
}

func TestFetchAudioNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/audio/nope.mp3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected structured not-found with 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["error"] != "File not found" {
		t.Errorf("unexpected not-found payload: %v", resp)
	}
}

func TestFetchAudioRejectsSubpaths(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/audio/foo%2Fbar.mp3", nil)
	if rec := ts.do(req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for subpath filename, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", resp["status"])
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRootAPIDoc(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "IELTS Tutor") {
		t.Errorf("expected API doc payload, got %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/chat/respond", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET respond, got %d", rec.Code)
	}
	if rec := ts.do(httptest.NewRequest(http.MethodPost, "/health", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST health, got %d", rec.Code)
	}
}

package main

import (
	"log"
	"net/http"
)

// Fake MP3 payload: a minimal MPEG frame header followed by padding, enough
// for clients that only check the container.
var fakeMP3 = append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 416)...)

func ttsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	text := query.Get("q")
	lang := query.Get("tl")
	client := query.Get("client")

	log.Printf("🔊 TTS REQUEST RECEIVED:")
	log.Printf("  ═══════════════════════════════════")
	log.Printf("    Text: %q", text)
	log.Printf("    Text Length: %d chars", len(text))
	log.Printf("    Language: %s", lang)
	log.Printf("    Client: %s", client)
	log.Printf("  ═══════════════════════════════════")

	if text == "" {
		http.Error(w, "Missing q parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(fakeMP3)

	log.Printf("✅ FAKE MP3 SENT: %d bytes", len(fakeMP3))
	log.Println("---")
}

func main() {
	http.HandleFunc("/translate_tts", ttsHandler)

	port := ":9001"
	log.Printf("🚀 Test TTS Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/translate_tts", port)
	log.Println("💡 Update your config to use: http://localhost:9001/translate_tts")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

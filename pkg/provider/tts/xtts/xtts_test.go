package xtts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bekzodm/dubpipe/pkg/provider/tts"
	"github.com/bekzodm/dubpipe/pkg/types"
)

func mustNew(t *testing.T, serverURL string, opts ...Option) *Provider {
	t.Helper()
	p, err := New(serverURL, opts...)
	if err != nil {
		t.Fatalf("New(%q): unexpected error: %v", serverURL, err)
	}
	return p
}

func testRequest(outputPath string) tts.Request {
	return tts.Request{
		Text:       "Salom dunyo",
		Language:   "uz",
		Speaker:    types.Speaker{ID: 1, VoiceID: "abc123", Gender: types.GenderMale},
		Segment:    types.Segment{ID: 7, StartTime: 10, EndTime: 12},
		OutputPath: outputPath,
	}
}

func TestNew(t *testing.T) {
	t.Run("trims trailing slash", func(t *testing.T) {
		p := mustNew(t, "http://localhost:8000/")
		if p.serverURL != "http://localhost:8000" {
			t.Errorf("serverURL = %q, want trailing slash stripped", p.serverURL)
		}
	})

	t.Run("empty URL returns error", func(t *testing.T) {
		if _, err := New(""); err == nil {
			t.Fatal("expected error for empty URL, got nil")
		}
	})
}

func TestSynthesize(t *testing.T) {
	dir := t.TempDir()

	t.Run("success", func(t *testing.T) {
		out := filepath.Join(dir, "seg_7.wav")
		var captured synthesizeRequest

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != synthesizeEndpoint {
				t.Errorf("path = %q, want %q", r.URL.Path, synthesizeEndpoint)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			// The real service writes into shared storage; emulate that.
			if err := os.WriteFile(out, make([]byte, 4096), 0o644); err != nil {
				t.Fatal(err)
			}
			json.NewEncoder(w).Encode(synthesizeResponse{OK: true, OutputPath: captured.OutputPath, Size: 4096})
		}))
		defer srv.Close()

		p := mustNew(t, srv.URL)
		got, err := p.Synthesize(context.Background(), testRequest(out))
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if got != out {
			t.Errorf("path = %q, want %q", got, out)
		}
		if captured.VoiceID != "abc123" {
			t.Errorf("voice_id = %q, want stored speaker voice", captured.VoiceID)
		}
		if captured.Language != "uz" {
			t.Errorf("language = %q, want uz", captured.Language)
		}
		if captured.Speed < 0.9 || captured.Speed > 1.15 {
			t.Errorf("speed = %v outside safe envelope", captured.Speed)
		}
	})

	t.Run("service failure is a typed error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not ready", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		p := mustNew(t, srv.URL)
		_, err := p.Synthesize(context.Background(), testRequest(filepath.Join(dir, "never.wav")))
		var synthErr *tts.SynthesisError
		if !errors.As(err, &synthErr) {
			t.Fatalf("err = %v, want *tts.SynthesisError", err)
		}
		if synthErr.SegmentID != 7 || synthErr.Provider != "xtts" {
			t.Errorf("error names segment %d provider %q", synthErr.SegmentID, synthErr.Provider)
		}
	})

	t.Run("missing output file fails loudly", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			// Service claims success but never writes the file.
			json.NewEncoder(w).Encode(synthesizeResponse{OK: true})
		}))
		defer srv.Close()

		p := mustNew(t, srv.URL)
		_, err := p.Synthesize(context.Background(), testRequest(filepath.Join(dir, "ghost.wav")))
		if err == nil {
			t.Fatal("want error for missing output, got nil")
		}
	})

	t.Run("speaker without clone is rejected", func(t *testing.T) {
		p := mustNew(t, "http://localhost:1")
		req := testRequest(filepath.Join(dir, "x.wav"))
		req.Speaker.VoiceID = ""
		if _, err := p.Synthesize(context.Background(), req); err == nil {
			t.Fatal("want error for speaker without cloned voice")
		}
	})
}

func TestVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(voicesResponse{Voices: []voiceEntry{
			{VoiceID: "v1", Name: "Narrator", Language: "uz", Cached: true},
			{VoiceID: "v2", Name: "Guest"},
		}})
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	voices, err := p.Voices(context.Background(), "uz")
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("len(voices) = %d, want 2", len(voices))
	}
	if !voices[0].Cloned {
		t.Error("xtts voices must be marked cloned")
	}
	if voices[1].Language != "uz" {
		t.Errorf("empty language should inherit request language, got %q", voices[1].Language)
	}
}

func TestCloneVoice(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join(dir, "sample.wav")
	if err := os.WriteFile(sample, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("name"); got != "Hero" {
			t.Errorf("name = %q, want Hero", got)
		}
		json.NewEncoder(w).Encode(cloneResponse{OK: true, VoiceID: "cloned-1", Name: "Hero"})
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	id, err := p.CloneVoice(context.Background(), sample, "Hero", tts.CloneOptions{Language: "uz"})
	if err != nil {
		t.Fatalf("CloneVoice: %v", err)
	}
	if id != "cloned-1" {
		t.Errorf("voice id = %q, want cloned-1", id)
	}
}

func TestRelativeOutput(t *testing.T) {
	p := mustNew(t, "http://localhost:8000", WithStorageRoot("/var/storage"))
	if got := p.relativeOutput("/var/storage/audio/seg_1.wav"); got != "audio/seg_1.wav" {
		t.Errorf("relativeOutput = %q, want storage-relative path", got)
	}
	if got := p.relativeOutput("/elsewhere/seg_1.wav"); got != "/elsewhere/seg_1.wav" {
		t.Errorf("relativeOutput = %q, want untouched path outside root", got)
	}
}

// Package xtts provides a TTS provider backed by the self-hosted XTTS v2
// voice-cloning service.
//
// The service runs the model on a GPU box and exposes a small REST API:
//
//   - POST /synthesize with a JSON body {text, voice_id, language, emotion,
//     speed, output_path} — synthesis is performed server-side and written
//     to the shared storage volume.
//   - POST /clone (multipart) registers a new cloned voice from a sample.
//   - GET /voices lists registered cloned voices.
//   - POST /warmup/{voice_id} pre-caches a voice's speaker embedding.
//   - DELETE /voices/{voice_id} removes a cloned voice.
//
// Prosody is expressed as a speed multiplier; the model has no volume or
// pitch control, so those adjustments are left to post-processing. Model
// inference is slow, so the default timeout is generous.
//
// It implements the tts.Provider interface.
package xtts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bekzodm/dubpipe/internal/textnorm"
	"github.com/bekzodm/dubpipe/pkg/provider/tts"
	"github.com/google/uuid"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	synthesizeEndpoint = "/synthesize"
	cloneEndpoint      = "/clone"
	voicesEndpoint     = "/voices"
	warmupEndpoint     = "/warmup/"

	// defaultTimeout covers CPU-only deployments of the model, which can
	// take minutes for a long line.
	defaultTimeout = 5 * time.Minute
)

// Option is a functional option for configuring an XTTS Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 5 min: the
// model is GPU-bound and long lines take a while.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithStorageRoot sets the shared storage root the service writes into.
// Output paths in requests are made relative to this root.
func WithStorageRoot(root string) Option {
	return func(p *Provider) { p.storageRoot = root }
}

// Provider implements tts.Provider backed by the XTTS v2 service.
// Safe for concurrent use.
type Provider struct {
	serverURL   string
	storageRoot string
	httpClient  *http.Client
}

// New creates an XTTS Provider. serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("xtts: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) Name() string               { return "xtts" }
func (p *Provider) SupportsVoiceCloning() bool { return true }
func (p *Provider) SupportsEmotions() bool     { return true }
func (p *Provider) CostPerCharacter() float64  { return 0 }

// ---- wire types ----

type synthesizeRequest struct {
	Text       string  `json:"text"`
	VoiceID    string  `json:"voice_id"`
	Language   string  `json:"language"`
	Emotion    string  `json:"emotion"`
	Speed      float64 `json:"speed"`
	OutputPath string  `json:"output_path"`
}

type synthesizeResponse struct {
	OK         bool   `json:"ok"`
	OutputPath string `json:"output_path"`
	Size       int64  `json:"size"`
	Chunks     int    `json:"chunks"`
}

type voiceEntry struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Cached   bool   `json:"cached"`
}

type voicesResponse struct {
	Voices []voiceEntry `json:"voices"`
}

type cloneResponse struct {
	OK      bool   `json:"ok"`
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

// Voices lists the cloned voices registered with the service. The catalog
// is shared across languages; entries not matching language are kept, since
// cloned voices are multilingual.
func (p *Provider) Voices(ctx context.Context, language string) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("xtts: list voices: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xtts: list voices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xtts: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("xtts: list voices decode: %w", err)
	}

	out := make([]tts.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		lang := v.Language
		if lang == "" {
			lang = language
		}
		out = append(out, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: p.Name(),
			Language: lang,
			Cloned:   true,
		})
	}
	return out, nil
}

// Synthesize asks the service to render the line into the shared storage
// volume and verifies the result locally.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (string, error) {
	fail := func(err error) (string, error) {
		return "", &tts.SynthesisError{Provider: p.Name(), SegmentID: req.Segment.ID, Err: err}
	}

	voice := req.Speaker.VoiceID
	if voice == "" {
		// A cloning engine has no preset catalogue to fall back on; a
		// speaker routed here must have been cloned first.
		return fail(errors.New("speaker has no cloned voice"))
	}

	text := textnorm.Normalize(req.Text, req.Language)

	rate := tts.ClampRate(tts.SlotRate(len(text), req.Segment.SlotDuration(), req.Language) +
		req.Params.RateAdjust + req.Speaker.RatePercent)

	body := synthesizeRequest{
		Text:       text,
		VoiceID:    voice,
		Language:   req.Language,
		Emotion:    req.Params.Emotion,
		Speed:      1.0 + rate/100.0,
		OutputPath: p.relativeOutput(req.OutputPath),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fail(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.serverURL+synthesizeEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("synthesize call: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fail(fmt.Errorf("synthesize: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}

	var sr synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return fail(fmt.Errorf("synthesize decode: %w", err))
	}
	if !sr.OK {
		return fail(errors.New("synthesize: service reported failure"))
	}

	if err := tts.CheckOutput(req.OutputPath); err != nil {
		return fail(err)
	}
	return req.OutputPath, nil
}

// CloneVoice uploads a reference sample and returns the new voice ID.
func (p *Provider) CloneVoice(ctx context.Context, samplePath, name string, opts tts.CloneOptions) (string, error) {
	sample, err := os.Open(samplePath)
	if err != nil {
		return "", fmt.Errorf("xtts: open sample: %w", err)
	}
	defer sample.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("audio", filepath.Base(samplePath))
	if err != nil {
		return "", fmt.Errorf("xtts: clone form: %w", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", fmt.Errorf("xtts: clone copy sample: %w", err)
	}

	if name == "" {
		name = "voice-" + uuid.NewString()[:8]
	}
	_ = mw.WriteField("name", name)
	_ = mw.WriteField("description", opts.Description)
	if opts.Language != "" {
		_ = mw.WriteField("language", opts.Language)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("xtts: clone form close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+cloneEndpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("xtts: clone request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("xtts: clone call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("xtts: clone: unexpected status %d", resp.StatusCode)
	}

	var cr cloneResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("xtts: clone decode: %w", err)
	}
	if !cr.OK || cr.VoiceID == "" {
		return "", errors.New("xtts: clone: service reported failure")
	}
	return cr.VoiceID, nil
}

// WarmUp pre-caches the speaker embedding for a voice so the first
// synthesis of a session doesn't pay the conditioning cost.
func (p *Provider) WarmUp(ctx context.Context, voiceID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+warmupEndpoint+voiceID, nil)
	if err != nil {
		return fmt.Errorf("xtts: warmup: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("xtts: warmup call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("xtts: warmup: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// DeleteVoice removes a cloned voice and its cached embedding.
func (p *Provider) DeleteVoice(ctx context.Context, voiceID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.serverURL+voicesEndpoint+"/"+voiceID, nil)
	if err != nil {
		return fmt.Errorf("xtts: delete voice: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("xtts: delete voice call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("xtts: delete voice: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// relativeOutput strips the storage root so the service (which mounts the
// same volume at its own path) resolves the file correctly.
func (p *Provider) relativeOutput(path string) string {
	if p.storageRoot == "" {
		return path
	}
	if rel, err := filepath.Rel(p.storageRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

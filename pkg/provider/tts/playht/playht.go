// Package playht provides a Play.ht-backed TTS provider — the second cloud
// cloning/emotion engine. Synthesis uses the v2 REST API in direct-stream
// mode: the response body is the WAV audio itself. Emotion is expressed as
// a gender-prefixed style preset, speed as a multiplier.
//
// It implements the tts.Provider interface.
package playht

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
	"time"

	"github.com/bekzodm/dubpipe/internal/textnorm"
	"github.com/bekzodm/dubpipe/pkg/provider/tts"
	"github.com/bekzodm/dubpipe/pkg/types"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	ttsEndpoint    = "https://api.play.ht/api/v2/tts/stream"
	voicesEndpoint = "https://api.play.ht/api/v2/voices"
	cloneEndpoint  = "https://api.play.ht/api/v2/cloned-voices/instant"

	defaultTimeout = 2 * time.Minute

	costPerCharacter = 0.00008
)

// defaultVoices are preset voices by gender for speakers without clones.
var defaultVoices = map[types.Gender][]string{
	types.GenderMale:    {"larry", "william"},
	types.GenderFemale:  {"jennifer", "amelia"},
	types.GenderUnknown: {"larry", "jennifer"},
}

// emotionPresets maps a direction emotion to the engine's style names.
// Presets are gender-prefixed; unknown emotions fall back to no preset.
var emotionPresets = map[string]string{
	"happy":     "happy",
	"excited":   "happy",
	"sad":       "sad",
	"angry":     "angry",
	"fear":      "fearful",
	"surprise":  "surprised",
	"disgusted": "disgust",
}

// Option is a functional option for configuring the Play.ht Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 2 min.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// Provider implements tts.Provider backed by the Play.ht v2 API.
// Safe for concurrent use.
type Provider struct {
	userID     string
	apiKey     string
	httpClient *http.Client
}

// New creates a Play.ht Provider. Both credentials must be non-empty.
func New(userID, apiKey string, opts ...Option) (*Provider, error) {
	if userID == "" || apiKey == "" {
		return nil, errors.New("playht: userID and apiKey must not be empty")
	}
	p := &Provider{
		userID:     userID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) Name() string               { return "playht" }
func (p *Provider) SupportsVoiceCloning() bool { return true }
func (p *Provider) SupportsEmotions() bool     { return true }
func (p *Provider) CostPerCharacter() float64  { return costPerCharacter }

func (p *Provider) auth(req *http.Request) {
	req.Header.Set("X-USER-ID", p.userID)
	req.Header.Set("AUTHORIZATION", p.apiKey)
}

// ttsRequest is the JSON body for the stream endpoint.
type ttsRequest struct {
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`
	OutputFormat string  `json:"output_format"`
	SampleRate   int     `json:"sample_rate"`
	Speed        float64 `json:"speed"`
	VoiceEngine  string  `json:"voice_engine"`
	Emotion      string  `json:"emotion,omitempty"`
}

// Synthesize streams the rendered audio straight into the output file.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (string, error) {
	fail := func(err error) (string, error) {
		return "", &tts.SynthesisError{Provider: p.Name(), SegmentID: req.Segment.ID, Err: err}
	}

	voice := tts.ResolveVoice(req, defaultVoices)
	if voice == "" {
		return fail(errors.New("no voice available"))
	}

	text := textnorm.Normalize(req.Text, req.Language)
	rate := tts.ClampRate(tts.SlotRate(len(text), req.Segment.SlotDuration(), req.Language) +
		req.Params.RateAdjust + req.Speaker.RatePercent)

	body := ttsRequest{
		Text:         text,
		Voice:        voice,
		OutputFormat: "wav",
		SampleRate:   24000,
		Speed:        1.0 + rate/100.0,
		VoiceEngine:  "PlayHT2.0",
		Emotion:      emotionFor(req.Params.Emotion, req.Speaker.Gender),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fail(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ttsEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(err)
	}
	p.auth(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("synthesize call: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fail(fmt.Errorf("synthesize: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail)))
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fail(fmt.Errorf("create output dir: %w", err))
	}
	out, err := os.Create(req.OutputPath)
	if err != nil {
		return fail(fmt.Errorf("create output: %w", err))
	}
	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(req.OutputPath)
		return fail(fmt.Errorf("write output: %w", copyErr))
	}
	if closeErr != nil {
		os.Remove(req.OutputPath)
		return fail(fmt.Errorf("close output: %w", closeErr))
	}

	if err := tts.CheckOutput(req.OutputPath); err != nil {
		return fail(err)
	}
	return req.OutputPath, nil
}

// emotionFor maps a direction emotion to a gender-prefixed style preset.
func emotionFor(emotion string, gender types.Gender) string {
	preset, ok := emotionPresets[emotion]
	if !ok {
		return ""
	}
	prefix := "male"
	if gender == types.GenderFemale {
		prefix = "female"
	}
	return prefix + "_" + preset
}

// ---- voice catalogue ----

type apiVoice struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	Gender       string `json:"gender"`
	IsCloned     bool   `json:"is_cloned"`
}

// Voices lists the catalogue, filtered to language when it is set.
func (p *Provider) Voices(ctx context.Context, language string) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("playht: list voices: %w", err)
	}
	p.auth(req)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("playht: list voices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("playht: list voices: unexpected status %d", resp.StatusCode)
	}

	var entries []apiVoice
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("playht: list voices decode: %w", err)
	}

	out := make([]tts.Voice, 0, len(entries))
	for _, v := range entries {
		if language != "" && v.LanguageCode != "" && !matchesLanguage(v.LanguageCode, language) {
			continue
		}
		gender := types.GenderUnknown
		switch v.Gender {
		case "male":
			gender = types.GenderMale
		case "female":
			gender = types.GenderFemale
		}
		out = append(out, tts.Voice{
			ID:       v.ID,
			Name:     v.Name,
			Provider: p.Name(),
			Language: v.LanguageCode,
			Gender:   gender,
			Cloned:   v.IsCloned,
		})
	}
	return out, nil
}

func matchesLanguage(code, language string) bool {
	return code == language || (len(code) >= 2 && code[:2] == language)
}

// CloneVoice uploads a sample to the instant-clone endpoint.
func (p *Provider) CloneVoice(ctx context.Context, samplePath, name string, opts tts.CloneOptions) (string, error) {
	sample, err := os.Open(samplePath)
	if err != nil {
		return "", fmt.Errorf("playht: open sample: %w", err)
	}
	defer sample.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("sample_file", filepath.Base(samplePath))
	if err != nil {
		return "", fmt.Errorf("playht: clone form: %w", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", fmt.Errorf("playht: clone copy sample: %w", err)
	}
	_ = mw.WriteField("voice_name", name)
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("playht: clone form close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cloneEndpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("playht: clone request: %w", err)
	}
	p.auth(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("playht: clone call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("playht: clone: unexpected status %d", resp.StatusCode)
	}

	var cr struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("playht: clone decode: %w", err)
	}
	if cr.ID == "" {
		return "", errors.New("playht: clone: empty id in response")
	}
	return cr.ID, nil
}

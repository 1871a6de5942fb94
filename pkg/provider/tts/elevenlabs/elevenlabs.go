// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// streaming WebSocket API — one of the two cloud cloning/emotion engines.
// PCM frames arriving over the socket are collected and written out as a
// WAV file for the post-processing stage.
//
// It implements the tts.Provider interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
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
	"github.com/bekzodm/dubpipe/pkg/types"
	"github.com/coder/websocket"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	wsEndpointFmt  = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s"
	voicesEndpoint = "https://api.elevenlabs.io/v1/voices"
	cloneEndpoint  = "https://api.elevenlabs.io/v1/voices/add"

	defaultModel     = "eleven_multilingual_v2"
	defaultOutputFmt = "pcm_24000"
	outputSampleRate = 24000

	defaultTimeout = 90 * time.Second

	// costPerCharacter is the list price of the multilingual model in USD.
	costPerCharacter = 0.00018
)

// defaultVoices maps gender to preset voice IDs used when a speaker has no
// cloned voice. IDs are the public premade ElevenLabs voices.
var defaultVoices = map[types.Gender][]string{
	types.GenderMale:    {"pNInz6obpgDQGcFmaJgB", "ErXwobaYiN019PkySvjV"}, // Adam, Antoni
	types.GenderFemale:  {"21m00Tcm4TlvDq8ikWAM", "EXAVITQu4vr4xnSDxMaL"}, // Rachel, Bella
	types.GenderUnknown: {"pNInz6obpgDQGcFmaJgB", "21m00Tcm4TlvDq8ikWAM"},
}

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the model ID (e.g., "eleven_multilingual_v2").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithTimeout bounds one whole synthesis exchange. Defaults to 90 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements tts.Provider backed by the ElevenLabs API.
// Safe for concurrent use.
type Provider struct {
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates an ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		timeout:    defaultTimeout,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) Name() string               { return "elevenlabs" }
func (p *Provider) SupportsVoiceCloning() bool { return true }
func (p *Provider) SupportsEmotions() bool     { return true }
func (p *Provider) CostPerCharacter() float64  { return costPerCharacter }

// ---- WebSocket message types ----

// voiceSettings mirrors the ElevenLabs voice_settings object. Style and
// stability carry the emotional shaping; speed carries the slot-aware rate.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed"`
}

// boiMessage is the initial "begin of input" handshake payload.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// textMessage is sent for each text fragment; an empty Text flushes.
type textMessage struct {
	Text string `json:"text"`
}

// audioResponse is a message received over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// settingsFor derives voice settings from the direction parameters: high
// intensity trades stability for expressiveness, and the merged rate delta
// becomes a bounded speed multiplier.
func settingsFor(params tts.Params, ratePercent float64) *voiceSettings {
	stability := 1.0 - 0.6*params.Intensity
	if stability < 0.2 {
		stability = 0.2
	}
	speed := 1.0 + ratePercent/100.0
	if speed < 0.9 {
		speed = 0.9
	}
	if speed > 1.15 {
		speed = 1.15
	}
	return &voiceSettings{
		Stability:       stability,
		SimilarityBoost: 0.75,
		Style:           params.Intensity,
		Speed:           speed,
	}
}

// Synthesize opens a stream-input socket, sends the normalized line, drains
// the PCM frames and writes them as a WAV file at req.OutputPath.
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

	wsCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	wsURL := fmt.Sprintf(wsEndpointFmt, voice, p.model, defaultOutputFmt)
	conn, _, err := websocket.Dial(wsCtx, wsURL, nil)
	if err != nil {
		return fail(fmt.Errorf("dial: %w", err))
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// BOI handshake: authenticate and configure the stream. The API
	// requires a non-empty first text value.
	boi := boiMessage{
		Text:          " ",
		VoiceSettings: settingsFor(req.Params, rate),
		XiAPIKey:      p.apiKey,
	}
	if err := writeJSON(wsCtx, conn, boi); err != nil {
		return fail(fmt.Errorf("send BOI: %w", err))
	}
	if err := writeJSON(wsCtx, conn, textMessage{Text: text + " "}); err != nil {
		return fail(fmt.Errorf("send text: %w", err))
	}
	// Empty text = end of input, flush remaining audio.
	if err := writeJSON(wsCtx, conn, textMessage{}); err != nil {
		return fail(fmt.Errorf("send flush: %w", err))
	}

	pcm, err := drainAudio(wsCtx, conn)
	if err != nil {
		return fail(err)
	}
	if len(pcm) == 0 {
		return fail(errors.New("no audio received"))
	}

	if err := writeWAV(req.OutputPath, pcm, outputSampleRate); err != nil {
		return fail(err)
	}
	if err := tts.CheckOutput(req.OutputPath); err != nil {
		return fail(err)
	}
	return req.OutputPath, nil
}

// drainAudio reads messages until the final frame or socket close,
// concatenating the decoded PCM.
func drainAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var pcm []byte
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			// Normal closure after the final frame is expected.
			if len(pcm) > 0 {
				return pcm, nil
			}
			return nil, fmt.Errorf("read audio: %w", err)
		}
		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err == nil {
				pcm = append(pcm, chunk...)
			}
		}
		if resp.IsFinal {
			return pcm, nil
		}
	}
}

// writeWAV wraps raw little-endian 16-bit mono PCM in a WAV container.
func writeWAV(path string, pcm []byte, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

// ---- voice catalogue ----

type voicesResponse struct {
	Voices []apiVoice `json:"voices"`
}

type apiVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// Voices returns the account's voice catalogue. Language filtering is
// advisory: multilingual voices speak every pipeline language.
func (p *Provider) Voices(ctx context.Context, language string) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return parseVoices(vr, language), nil
}

func parseVoices(vr voicesResponse, language string) []tts.Voice {
	out := make([]tts.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		gender := types.GenderUnknown
		switch strings.ToLower(v.Labels["gender"]) {
		case "male":
			gender = types.GenderMale
		case "female":
			gender = types.GenderFemale
		}
		out = append(out, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: "elevenlabs",
			Language: language,
			Gender:   gender,
			Cloned:   v.Category == "cloned",
		})
	}
	return out
}

// CloneVoice uploads a reference sample via POST /v1/voices/add.
func (p *Provider) CloneVoice(ctx context.Context, samplePath, name string, opts tts.CloneOptions) (string, error) {
	sample, err := os.Open(samplePath)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: open sample: %w", err)
	}
	defer sample.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", filepath.Base(samplePath))
	if err != nil {
		return "", fmt.Errorf("elevenlabs: clone form: %w", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", fmt.Errorf("elevenlabs: clone copy sample: %w", err)
	}
	_ = mw.WriteField("name", name)
	if opts.Description != "" {
		_ = mw.WriteField("description", opts.Description)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("elevenlabs: clone form close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cloneEndpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: clone request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: clone call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("elevenlabs: clone: unexpected status %d", resp.StatusCode)
	}

	var cr struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("elevenlabs: clone decode: %w", err)
	}
	if cr.VoiceID == "" {
		return "", errors.New("elevenlabs: clone: empty voice_id in response")
	}
	return cr.VoiceID, nil
}

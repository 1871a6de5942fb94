// Package tts defines the Provider interface for text-to-speech backends.
//
// A provider wraps one synthesis engine (a local CLI engine, a cloud
// cloning API, or a self-hosted XTTS server) and presents a uniform
// file-based contract: Synthesize writes a finished audio file for one
// dialogue segment and returns its path. Providers differ only in voice
// catalogue shape, cloning support, how prosody is expressed, and cost.
//
// Implementations must be safe for concurrent use. Multiple segments may be
// synthesized in parallel by the worker pool that drives the pipeline.
package tts

import (
	"context"
)

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Name returns the registered provider name (e.g., "edge", "xtts").
	Name() string

	// SupportsVoiceCloning reports whether CloneVoice is usable.
	SupportsVoiceCloning() bool

	// SupportsEmotions reports whether the backend accepts an emotion or
	// style input beyond plain rate/volume prosody.
	SupportsEmotions() bool

	// Voices returns the provider's voice catalogue for a language. A
	// catalogue fetch failure degrades to an empty slice with an error the
	// caller may log and ignore; UI features fall back gracefully.
	Voices(ctx context.Context, language string) ([]Voice, error)

	// Synthesize renders req.Text into req.OutputPath and returns the final
	// path. Implementations must:
	//
	//  1. Resolve an effective voice (stored ID, else a deterministic
	//     gender/language default avoiding voices in req.UsedVoices).
	//  2. Apply the merged prosody in req.Params plus the slot-aware rate,
	//     clamped to the engine's safe envelope.
	//  3. Fail with a *SynthesisError if the backend reports failure or the
	//     output file is missing or implausibly small.
	//
	// Pitch is derived from the speaker profile only — req.Params carries
	// no emotional pitch component by design.
	Synthesize(ctx context.Context, req Request) (string, error)

	// CloneVoice builds a reusable cloned voice from a reference sample and
	// returns its provider-specific voice ID. Providers without cloning
	// return ErrCloningUnsupported.
	CloneVoice(ctx context.Context, samplePath, name string, opts CloneOptions) (string, error)

	// CostPerCharacter returns the provider's synthesis price in USD per
	// character (0 for free/self-hosted engines). Used for budgeting, not
	// enforced here.
	CostPerCharacter() float64
}

package metricstore

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/bekzodm/dubpipe/pkg/types"
)

// writeSine renders a one-second 440 Hz sine at the given amplitude.
func writeSine(t *testing.T, amplitude float64) string {
	t.Helper()
	const sampleRate = 8000

	data := make([]int, sampleRate)
	for i := range data {
		data[i] = int(amplitude * math.MaxInt16 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}

	path := filepath.Join(t.TempDir(), "take.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func TestMeasure(t *testing.T) {
	path := writeSine(t, 0.5)
	segment := types.Segment{ID: 7, VideoID: 1, StartTime: 0, EndTime: 2}

	m, err := Measure(path, segment, "edge", 1.25)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}

	if m.SegmentID != 7 || m.Provider != "edge" {
		t.Errorf("identity = segment %d provider %q", m.SegmentID, m.Provider)
	}
	if math.Abs(m.DurationRatio-0.5) > 0.02 {
		t.Errorf("DurationRatio = %v, want about 0.5 (1s take in 2s slot)", m.DurationRatio)
	}
	if m.Trimmed {
		t.Error("a take inside the slot must not be flagged trimmed")
	}
	// RMS of a sine is amplitude/sqrt(2).
	if want := 0.5 / math.Sqrt2; math.Abs(m.RMSLevel-want) > 0.02 {
		t.Errorf("RMSLevel = %v, want about %v", m.RMSLevel, want)
	}
	if m.StretchFactor != 1.25 {
		t.Errorf("StretchFactor = %v, want passthrough 1.25", m.StretchFactor)
	}
	// Lag quantization at 8 kHz puts a 440 Hz tone a few Hz off.
	if math.Abs(m.PitchHz-440) > 15 {
		t.Errorf("PitchHz = %v, want about 440", m.PitchHz)
	}
}

func TestEstimatePitch(t *testing.T) {
	const sampleRate = 8000

	sine := func(freq float64) []int {
		data := make([]int, sampleRate)
		for i := range data {
			data[i] = int(0.5 * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
		}
		return data
	}

	if got := estimatePitch(sine(220), sampleRate, 1); math.Abs(got-220) > 10 {
		t.Errorf("220 Hz tone: estimate = %v", got)
	}
	if got := estimatePitch(sine(110), sampleRate, 1); math.Abs(got-110) > 5 {
		t.Errorf("110 Hz tone: estimate = %v", got)
	}

	// Stereo input must use the first channel only.
	stereo := make([]int, 0, 2*sampleRate)
	for _, s := range sine(220) {
		stereo = append(stereo, s, 0)
	}
	if got := estimatePitch(stereo, sampleRate, 2); math.Abs(got-220) > 10 {
		t.Errorf("stereo 220 Hz tone: estimate = %v", got)
	}

	if got := estimatePitch(make([]int, sampleRate), sampleRate, 1); got != 0 {
		t.Errorf("silence: estimate = %v, want 0", got)
	}
	if got := estimatePitch(nil, sampleRate, 1); got != 0 {
		t.Errorf("empty input: estimate = %v, want 0", got)
	}
}

func TestMeasureTrimmedFlag(t *testing.T) {
	path := writeSine(t, 0.3)
	// 1 second of audio in a 0.8 second slot.
	segment := types.Segment{ID: 7, StartTime: 0, EndTime: 0.8}

	m, err := Measure(path, segment, "edge", 1.0)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if !m.Trimmed {
		t.Errorf("DurationRatio = %v, want trimmed flag set", m.DurationRatio)
	}
}

func TestMeasureInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	os.WriteFile(path, []byte("not audio"), 0o644)

	if _, err := Measure(path, types.Segment{EndTime: 1}, "edge", 1.0); err == nil {
		t.Fatal("want error for non-WAV input")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for _, m := range []types.QualityMetric{
		{SegmentID: 1, Provider: "edge", DurationRatio: 1.0},
		{SegmentID: 2, Provider: "xtts", DurationRatio: 1.2},
		{SegmentID: 1, Provider: "edge", DurationRatio: 0.9},
	} {
		if err := store.Append(ctx, m); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.ListBySegment(ctx, 1)
	if err != nil {
		t.Fatalf("ListBySegment: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want the two segment-1 records", len(got))
	}
	if got[0].DurationRatio != 1.0 || got[1].DurationRatio != 0.9 {
		t.Error("records must come back in append order")
	}

	empty, err := store.ListBySegment(ctx, 99)
	if err != nil || len(empty) != 0 {
		t.Errorf("unknown segment: %v, %v; want empty", empty, err)
	}
}

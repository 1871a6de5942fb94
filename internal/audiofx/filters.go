// Package audiofx turns a raw synthesized clip into broadcast-quality audio.
// Filter graphs are built as typed stage descriptors and serialized to the
// ffmpeg -af syntax only at the boundary, so stage ordering and parameter
// ranges live in code rather than format strings.
package audiofx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Param is one key=value argument of a filter.
type Param struct {
	Key   string
	Value string
}

// Filter is a single named stage with ordered parameters.
type Filter struct {
	Name   string
	Params []Param
}

func (f Filter) String() string {
	if len(f.Params) == 0 {
		return f.Name
	}
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.Key + "=" + p.Value
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// Chain is an ordered filter graph.
type Chain []Filter

// String serializes the chain to the comma-joined -af form.
func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, f := range c {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// fnum formats a float without trailing zeros.
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fdb(v float64) string {
	return fmt.Sprintf("%.1fdB", v)
}

// ---- stage constructors ----

func resample(rate int) Filter {
	return Filter{Name: "aresample", Params: []Param{{"osr", strconv.Itoa(rate)}}}
}

func atempo(ratio float64) Filter {
	return Filter{Name: "atempo", Params: []Param{{"tempo", fnum(round3(ratio))}}}
}

func highpass(freq float64) Filter {
	return Filter{Name: "highpass", Params: []Param{{"f", fnum(freq)}}}
}

func lowpass(freq float64) Filter {
	return Filter{Name: "lowpass", Params: []Param{{"f", fnum(freq)}}}
}

// eq is a single parametric band: center frequency, Q width, gain in dB.
func eq(freq, width, gainDB float64) Filter {
	return Filter{Name: "equalizer", Params: []Param{
		{"f", fnum(freq)},
		{"width_type", "q"},
		{"w", fnum(width)},
		{"g", fnum(gainDB)},
	}}
}

func compressor(threshold, ratio float64) Filter {
	return Filter{Name: "acompressor", Params: []Param{
		{"threshold", fnum(threshold)},
		{"ratio", fnum(ratio)},
		{"attack", "20"},
		{"release", "250"},
		{"makeup", "1"},
	}}
}

func volume(gainDB float64) Filter {
	return Filter{Name: "volume", Params: []Param{{"volume", fdb(gainDB)}}}
}

// ambience is a single short-decay echo tap.
func ambience(delayMs, decay float64) Filter {
	return Filter{Name: "aecho", Params: []Param{
		{"in_gain", "0.8"},
		{"out_gain", "0.88"},
		{"delays", fnum(delayMs)},
		{"decays", fnum(decay)},
	}}
}

func loudnorm(targetI, lra, tp float64) Filter {
	return Filter{Name: "loudnorm", Params: []Param{
		{"I", fnum(targetI)},
		{"LRA", fnum(lra)},
		{"TP", fnum(tp)},
	}}
}

func limiter(ceiling float64) Filter {
	return Filter{Name: "alimiter", Params: []Param{
		{"limit", fnum(ceiling)},
		{"level", "false"},
	}}
}

func tremoloFx(freq, depth float64) Filter {
	return Filter{Name: "tremolo", Params: []Param{
		{"f", fnum(freq)},
		{"d", fnum(depth)},
	}}
}

func vibrato(freq, depth float64) Filter {
	return Filter{Name: "vibrato", Params: []Param{
		{"f", fnum(freq)},
		{"d", fnum(depth)},
	}}
}

// stretchSteps decomposes a stretch ratio into chained atempo stages, each
// within the filter's quality-safe 2.0 bound.
func stretchSteps(ratio float64) []Filter {
	var steps []Filter
	for ratio > 2.0 {
		steps = append(steps, atempo(2.0))
		ratio /= 2.0
	}
	steps = append(steps, atempo(ratio))
	return steps
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Package report holds the results of a statistical harness run and renders
// them as JSON, CBOR or plain text.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/ugorji/go/codec"
)

const (
	// IdealDiffusionPercentage is the avalanche target: half the output bits.
	IdealDiffusionPercentage = 50.0

	// TargetConfusionPercentage is the minimum acceptable confusion.
	TargetConfusionPercentage = 40.0

	seedKeyPrefix = "seed_"
)

var jsonHandle = &codec.JsonHandle{Indent: 2}

func init() {
	jsonHandle.Canonical = true
}

// Metadata describes a run.
type Metadata struct {
	Timestamp       string `json:"timestamp"`
	GoVersion       string `json:"go_version"`
	SeedSizesTested []int  `json:"seed_sizes_tested"`
	RNGSeed         string `json:"rng_seed"`
	Workers         int    `json:"workers,omitempty"`
}

// Correctness counts round trips that did and did not give back the message.
type Correctness struct {
	TestsPassed int     `json:"tests_passed"`
	TestsFailed int     `json:"tests_failed"`
	SuccessRate float64 `json:"success_rate"`
}

// Performance holds per-call timings in milliseconds.
type Performance struct {
	GenTimeMs   float64 `json:"gen_time_ms"`
	EncTimeMs   float64 `json:"enc_time_ms"`
	DecTimeMs   float64 `json:"dec_time_ms"`
	GenStd      float64 `json:"gen_std"`
	EncStd      float64 `json:"enc_std"`
	DecStd      float64 `json:"dec_std"`
	GenMin      float64 `json:"gen_min"`
	GenMax      float64 `json:"gen_max"`
	EncMin      float64 `json:"enc_min"`
	EncMax      float64 `json:"enc_max"`
	DecMin      float64 `json:"dec_min"`
	DecMax      float64 `json:"dec_max"`
	TotalTimeMs float64 `json:"total_time_ms"`
}

// Avalanche summarises how many ciphertext bits change when one input bit
// is flipped. It is used for both diffusion and confusion.
type Avalanche struct {
	MeanBitsChanged  float64   `json:"mean_bits_changed"`
	Percentage       float64   `json:"percentage"`
	MinBits          float64   `json:"min_bits"`
	MaxBits          float64   `json:"max_bits"`
	StdDev           float64   `json:"std_dev"`
	Distribution     []float64 `json:"distribution"`
	IdealPercentage  float64   `json:"ideal_percentage,omitempty"`
	TargetPercentage float64   `json:"target_percentage,omitempty"`
	TotalBits        int       `json:"total_bits"`
}

// KeyEquivalence reports distinct seeds that encrypt one message to the
// same ciphertext.
type KeyEquivalence struct {
	SeedSize            int     `json:"seed_size"`
	SamplesTested       int     `json:"samples_tested"`
	EquivalentPairs     int     `json:"equivalent_pairs"`
	CollisionRate       float64 `json:"collision_rate"`
	TotalSeedsGenerated int     `json:"total_seeds_generated"`
	UniqueCiphertexts   int     `json:"unique_ciphertexts"`
}

// Report is the full result of a harness run. The per seed size maps are
// keyed by SeedKey.
type Report struct {
	Metadata       Metadata                `json:"metadata"`
	Correctness    map[string]*Correctness `json:"correctness"`
	Performance    map[string]*Performance `json:"performance"`
	Diffusion      map[string]*Avalanche   `json:"diffusion"`
	Confusion      map[string]*Avalanche   `json:"confusion"`
	KeyEquivalence *KeyEquivalence         `json:"key_equivalence"`
}

// New returns an empty Report with its maps allocated.
func New(md Metadata) *Report {
	return &Report{
		Metadata:    md,
		Correctness: make(map[string]*Correctness),
		Performance: make(map[string]*Performance),
		Diffusion:   make(map[string]*Avalanche),
		Confusion:   make(map[string]*Avalanche),
	}
}

// SeedKey returns the map key used for seed size n.
func SeedKey(n int) string {
	return seedKeyPrefix + strconv.Itoa(n)
}

// ParseSeedKey is the inverse of SeedKey.
func ParseSeedKey(k string) (int, error) {
	s, ok := strings.CutPrefix(k, seedKeyPrefix)
	if !ok {
		return 0, fmt.Errorf("report: malformed seed key: '%v'", k)
	}
	return strconv.Atoi(s)
}

// SeedSizes returns the seed sizes present in m, in ascending order.
func SeedSizes[V any](m map[string]V) []int {
	sizes := make([]int, 0, len(m))
	for k := range m {
		if n, err := ParseSeedKey(k); err == nil {
			sizes = append(sizes, n)
		}
	}
	sort.Ints(sizes)
	return sizes
}

// AllCorrect returns true iff every recorded round trip succeeded.
func (r *Report) AllCorrect() bool {
	for _, c := range r.Correctness {
		if c.TestsFailed != 0 {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the report as indented JSON.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	var out []byte
	enc := codec.NewEncoderBytes(&out, jsonHandle)
	if err := enc.Encode((*plain)(r)); err != nil {
		return nil, err
	}
	return out, nil
}

// UnmarshalJSON decodes a report produced by MarshalJSON.
func (r *Report) UnmarshalJSON(b []byte) error {
	type plain Report
	dec := codec.NewDecoderBytes(b, jsonHandle)
	return dec.Decode((*plain)(r))
}

// MarshalCBOR encodes the report as CBOR.
func (r *Report) MarshalCBOR() ([]byte, error) {
	type plain Report
	return cbor.Marshal((*plain)(r))
}

// UnmarshalCBOR decodes a report produced by MarshalCBOR.
func (r *Report) UnmarshalCBOR(b []byte) error {
	type plain Report
	return cbor.Unmarshal(b, (*plain)(r))
}

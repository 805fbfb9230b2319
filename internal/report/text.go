package report

import (
	"fmt"
	"io"
	"strings"
)

// Rating is a coarse judgement of a measured property.
type Rating string

const (
	// Excellent means the property is at or near its ideal value.
	Excellent Rating = "Excellent"

	// Good means the property is within the acceptable range.
	Good Rating = "Good"

	// NeedsImprovement means the property misses the acceptable range.
	NeedsImprovement Rating = "Needs improvement"
)

// RateDiffusion rates an avalanche percentage against the ideal of 50%.
func RateDiffusion(pct float64) Rating {
	switch {
	case pct >= 45 && pct <= 55:
		return Excellent
	case pct >= 40 && pct <= 60:
		return Good
	default:
		return NeedsImprovement
	}
}

// RateConfusion rates the percentage of ciphertext bits changed by a one
// bit change of the seed.
func RateConfusion(pct float64) Rating {
	switch {
	case pct >= 50:
		return Excellent
	case pct >= TargetConfusionPercentage:
		return Good
	default:
		return NeedsImprovement
	}
}

// MeanPercentage averages the percentages of m over the seed sizes.
func MeanPercentage(m map[string]*Avalanche) float64 {
	if len(m) == 0 {
		return 0
	}
	var sum float64
	for _, a := range m {
		sum += a.Percentage
	}
	return sum / float64(len(m))
}

type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...interface{}) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) section(n int, title string) {
	bar := strings.Repeat("=", 80)
	t.printf("%s\n%d. %s\n%s\n\n", bar, n, title, bar)
}

// WriteText writes the human readable report to w.
func (r *Report) WriteText(w io.Writer) error {
	t := &textWriter{w: w}
	bar := strings.Repeat("=", 80)

	t.printf("%s\nSPN CIPHER TEST REPORT\n%s\n\n", bar, bar)
	t.printf("Run at: %s\n", r.Metadata.Timestamp)
	t.printf("Go version: %s\n", r.Metadata.GoVersion)
	t.printf("RNG seed: %s\n\n", r.Metadata.RNGSeed)

	t.section(1, "CONSTRUCTION")
	t.printf("GEN(seed)  expands the seed to a key of 4*len(seed) bits with SHA-256.\n")
	t.printf("ENC(K, M)  applies 4 rounds of subkey XOR, 4-bit S-box and bit P-box.\n")
	t.printf("DEC(K, C)  applies the inverse rounds in reverse order.\n\n")

	t.section(2, "CORRECTNESS")
	t.printf("Checks DEC(K, ENC(K, M)) = M.\n\n")
	t.printf("%-15s %-20s %-20s\n%s\n", "Seed Size", "Tests Passed", "Success Rate", strings.Repeat("-", 55))
	for _, n := range SeedSizes(r.Correctness) {
		c := r.Correctness[SeedKey(n)]
		t.printf("%-15s %-20d %.2f%%\n", fmt.Sprintf("%d bits", n), c.TestsPassed, c.SuccessRate)
	}
	t.printf("\n")

	t.section(3, "PERFORMANCE")
	t.printf("Mean time per call in milliseconds.\n\n")
	t.printf("%-10s %-18s %-18s %-18s %-10s\n%s\n", "Seed", "GEN (ms)", "ENC (ms)", "DEC (ms)", "Total (ms)", strings.Repeat("-", 78))
	for _, n := range SeedSizes(r.Performance) {
		p := r.Performance[SeedKey(n)]
		t.printf("%-10s %6.4f ±%6.4f  %6.4f ±%6.4f  %6.4f ±%6.4f  %6.4f\n",
			fmt.Sprintf("%d bits", n),
			p.GenTimeMs, p.GenStd,
			p.EncTimeMs, p.EncStd,
			p.DecTimeMs, p.DecStd,
			p.TotalTimeMs)
	}
	t.printf("\n")

	t.section(4, "DIFFUSION (AVALANCHE)")
	t.printf("Flips every message bit and counts changed ciphertext bits (ideal ~50%%).\n\n")
	r.writeAvalanche(t, r.Diffusion, RateDiffusion)

	t.section(5, "CONFUSION")
	t.printf("Flips every seed bit and counts changed ciphertext bits (target >%.0f%%).\n\n", TargetConfusionPercentage)
	r.writeAvalanche(t, r.Confusion, RateConfusion)

	t.section(6, "EQUIVALENT KEYS")
	if eq := r.KeyEquivalence; eq != nil {
		t.printf("Seed size: %d bits\n", eq.SeedSize)
		t.printf("Seeds generated: %d\n", eq.TotalSeedsGenerated)
		t.printf("Samples tested: %d\n", eq.SamplesTested)
		t.printf("Unique ciphertexts: %d\n\n", eq.UniqueCiphertexts)
		t.printf("Equivalent pairs found: %d\n", eq.EquivalentPairs)
		t.printf("Collision rate: %.4f%%\n\n", eq.CollisionRate)
		if eq.EquivalentPairs == 0 {
			t.printf("No collisions detected.\n\n")
		} else {
			t.printf("WARNING: collisions detected.\n\n")
		}
	} else {
		t.printf("Not run.\n\n")
	}

	t.section(7, "SUMMARY")
	if r.AllCorrect() {
		t.printf("CORRECTNESS: every round trip succeeded\n\n")
	} else {
		t.printf("CORRECTNESS: round trip failures detected\n\n")
	}
	if len(r.Diffusion) > 0 {
		pct := MeanPercentage(r.Diffusion)
		t.printf("DIFFUSION: %.2f%% of bits changed on average (%s)\n\n", pct, RateDiffusion(pct))
	}
	if len(r.Confusion) > 0 {
		pct := MeanPercentage(r.Confusion)
		t.printf("CONFUSION: %.2f%% of bits changed on average (%s)\n\n", pct, RateConfusion(pct))
	}
	if p, ok := r.Performance[SeedKey(32)]; ok {
		t.printf("PERFORMANCE (seed=32 bits):\n")
		t.printf("  GEN: %.4f ms\n  ENC: %.4f ms\n  DEC: %.4f ms\n  Total: %.4f ms\n", p.GenTimeMs, p.EncTimeMs, p.DecTimeMs, p.TotalTimeMs)
	}
	return t.err
}

func (r *Report) writeAvalanche(t *textWriter, m map[string]*Avalanche, rate func(float64) Rating) {
	t.printf("%-10s %-20s %-12s %s\n%s\n", "Seed", "Bits Changed", "Percentage", "Rating", strings.Repeat("-", 60))
	for _, n := range SeedSizes(m) {
		a := m[SeedKey(n)]
		t.printf("%-10s %-20s %6.2f%%      %s\n",
			fmt.Sprintf("%d bits", n),
			fmt.Sprintf("%.2f / %d", a.MeanBitsChanged, a.TotalBits),
			a.Percentage,
			rate(a.Percentage))
	}
	t.printf("\n")
}

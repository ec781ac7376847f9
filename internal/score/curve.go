// Package score converts raw correctness into bounded, comparable scores:
// the configurable percentage->points curve, the inconsistency penalty, the
// sliding error cap, and the global aggregation.
package score

import "sort"

// Curve maps a correctness percentage (0-100) to a 0-100 score. Every
// registered variant is monotonic non-decreasing with f(0)=0 and f(100)=100,
// continuous at every band boundary.
type Curve func(pct float64) float64

var curves = map[string]Curve{}

// Register binds a curve under a name. Variants are named, fixed formulas;
// the integrator picks one explicitly in the run config.
func Register(name string, c Curve) { curves[name] = c }

// Lookup returns the named curve.
func Lookup(name string) (Curve, bool) {
	c, ok := curves[name]
	return c, ok
}

// Names lists the registered variants, sorted.
func Names() []string {
	out := make([]string, 0, len(curves))
	for n := range curves {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// anchor is one (percentage, score) knot of a piecewise-linear curve.
type anchor struct{ pct, score float64 }

// interpolate builds a monotone piecewise-linear curve through the anchors.
// Anchors must be sorted by pct with non-decreasing scores, start at (0,0)
// and end at (100,100). Input outside [0,100] is clamped.
func interpolate(anchors []anchor) Curve {
	return func(pct float64) float64 {
		if pct <= 0 {
			return 0
		}
		if pct >= 100 {
			return 100
		}
		for i := 1; i < len(anchors); i++ {
			hi := anchors[i]
			if pct > hi.pct {
				continue
			}
			lo := anchors[i-1]
			return lo.score + (pct-lo.pct)/(hi.pct-lo.pct)*(hi.score-lo.score)
		}
		return 100
	}
}

// Band anchors for the two historical formulas. The source band constants are
// kept, with two corrections the piecewise originals needed: the top band is
// anchored so f is continuous and actually reaches 100 at 100 instead of
// jumping there, and the 75–96 band of sg11 no longer overshoots the band
// above it.
var (
	sg11Anchors = []anchor{
		{0, 0}, {25, 30}, {50, 45}, {75, 65}, {96, 86}, {100, 100},
	}
	oficialAnchors = []anchor{
		{0, 0}, {40, 15}, {60, 35}, {76, 55}, {88, 70}, {96, 80}, {100, 100},
	}
)

func init() {
	Register("sg11", interpolate(sg11Anchors))
	Register("oficial", interpolate(oficialAnchors))
	Register("linear", interpolate([]anchor{{0, 0}, {100, 100}}))
}

package hexgrid

import (
	"math"

	"github.com/rotisserie/eris"
)

// Op is a closed enumeration of supported reducers. Reducer choice is part
// of the configuration surface, so unknown operators are rejected when the
// configuration is parsed rather than mid-aggregation.
type Op int

const (
	OpCount Op = iota
	OpSum
	OpMean
	OpStd
	OpMin
	OpMax
	OpNunique
)

// ErrUnsupportedAggregation is returned when a reducer has no valid or
// approximated two-stage mapping for neighborhood aggregation.
var ErrUnsupportedAggregation = eris.New("hexgrid: unsupported aggregation operator")

var opNames = map[Op]string{
	OpCount:   "count",
	OpSum:     "sum",
	OpMean:    "mean",
	OpStd:     "std",
	OpMin:     "min",
	OpMax:     "max",
	OpNunique: "nunique",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "unknown"
}

// ParseOp maps a reducer name from configuration to its Op value.
func ParseOp(name string) (Op, error) {
	for op, n := range opNames {
		if n == name {
			return op, nil
		}
	}
	return 0, eris.Wrapf(ErrUnsupportedAggregation, "hexgrid: parse reducer %q", name)
}

// neighborhoodOp returns the operator applied to per-cell values when a
// reducer is lifted to the neighborhood stage. The second stage operates on
// already-aggregated per-cell summaries, so only two-stage-valid operators
// pass through unchanged: sum, mean, max, min.
//
// Two reducers are substituted: count becomes sum, which is exact because
// per-cell counts are additive; std and nunique become mean, approximating
// the neighborhood spread/variety as the mean of per-cell values.
// Recomputing either exactly would need a second pass over the raw rows.
func neighborhoodOp(op Op) (Op, error) {
	switch op {
	case OpSum, OpMean, OpMax, OpMin:
		return op, nil
	case OpCount:
		return OpSum, nil
	case OpStd, OpNunique:
		return OpMean, nil
	default:
		return 0, eris.Wrapf(ErrUnsupportedAggregation, "hexgrid: no two-stage mapping for %s", op)
	}
}

// reduce applies op to the non-NaN values. An empty (or all-NaN) input
// yields NaN; std of a single value yields NaN (sample standard deviation).
func reduce(op Op, values []float64) float64 {
	var (
		n    int
		sum  float64
		min  = math.Inf(1)
		max  = math.Inf(-1)
		seen map[float64]struct{}
	)
	if op == OpNunique {
		seen = make(map[float64]struct{})
	}
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		n++
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		if seen != nil {
			seen[v] = struct{}{}
		}
	}

	switch op {
	case OpCount:
		return float64(n)
	case OpNunique:
		return float64(len(seen))
	}

	if n == 0 {
		return math.NaN()
	}

	switch op {
	case OpSum:
		return sum
	case OpMean:
		return sum / float64(n)
	case OpMin:
		return min
	case OpMax:
		return max
	case OpStd:
		if n < 2 {
			return math.NaN()
		}
		mean := sum / float64(n)
		var ss float64
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(n-1))
	}
	return math.NaN()
}

package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// AggregateFunc reduces the values of a source field across a group.
type AggregateFunc interface {
	// Name returns the aggregate name (case-insensitive)
	Name() string
	// Evaluate reduces values, one per row of the group, in row order
	Evaluate(values []interface{}) (interface{}, error)
}

// AggregateRegistry maps aggregate names to implementations. Lookups are
// case-insensitive. It is immutable once built and safe for concurrent use.
type AggregateRegistry struct {
	functions map[string]AggregateFunc
}

// NewAggregateRegistry builds a registry from the given functions.
func NewAggregateRegistry(functions ...AggregateFunc) *AggregateRegistry {
	r := &AggregateRegistry{functions: make(map[string]AggregateFunc, len(functions))}
	for _, f := range functions {
		r.functions[strings.ToUpper(f.Name())] = f
	}
	return r
}

// Get retrieves an aggregate by name (case-insensitive)
func (r *AggregateRegistry) Get(name string) (AggregateFunc, bool) {
	f, ok := r.functions[strings.ToUpper(name)]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *AggregateRegistry) Names() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultAggregatesOnce sync.Once
	defaultAggregates     *AggregateRegistry
)

// DefaultAggregates returns the built-in aggregate registry.
func DefaultAggregates() *AggregateRegistry {
	defaultAggregatesOnce.Do(func() {
		defaultAggregates = NewAggregateRegistry(
			&CountFunc{},
			&CountDistinctFunc{},
			&ApproxCountDistinctFunc{},
			&SumFunc{},
			&AvgFunc{},
			&MinFunc{},
			&MaxFunc{},
		)
	})
	return defaultAggregates
}

// CountFunc counts all rows of the group.
type CountFunc struct{}

func (f *CountFunc) Name() string { return "COUNT" }
func (f *CountFunc) Evaluate(values []interface{}) (interface{}, error) {
	return int64(len(values)), nil
}

// CountDistinctFunc counts unique values. Numerically equal numbers count
// once; nil and Missing are values like any other.
type CountDistinctFunc struct{}

func (f *CountDistinctFunc) Name() string { return "COUNT_DISTINCT" }
func (f *CountDistinctFunc) Evaluate(values []interface{}) (interface{}, error) {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		key, err := valueKey(v)
		if err != nil {
			return nil, fmt.Errorf("COUNT_DISTINCT: %w", err)
		}
		seen[key] = struct{}{}
	}
	return int64(len(seen)), nil
}

// ApproxCountDistinctFunc estimates the number of unique non-null values
// with a HyperLogLog sketch.
type ApproxCountDistinctFunc struct{}

func (f *ApproxCountDistinctFunc) Name() string { return "APPROX_COUNT_DISTINCT" }
func (f *ApproxCountDistinctFunc) Evaluate(values []interface{}) (interface{}, error) {
	sketch := hyperloglog.New()
	for _, v := range values {
		if isNull(v) {
			continue
		}
		key, err := valueKey(v)
		if err != nil {
			return nil, fmt.Errorf("APPROX_COUNT_DISTINCT: %w", err)
		}
		sketch.Insert([]byte(key))
	}
	return int64(sketch.Estimate()), nil
}

// numbers converts the non-null values to float64, failing on anything
// non-numeric.
func numbers(name string, values []interface{}) ([]float64, error) {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if isNull(v) {
			continue
		}
		n, ok := toFloat64(v)
		if !ok {
			return nil, newError(ErrInvalidOperand, "", name, "%s: cannot aggregate %T value %v", name, v, v)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// SumFunc adds the numeric values of the group. Null values are skipped and
// an empty input sums to 0.
type SumFunc struct{}

func (f *SumFunc) Name() string { return "SUM" }
func (f *SumFunc) Evaluate(values []interface{}) (interface{}, error) {
	nums, err := numbers("SUM", values)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum, nil
}

// AvgFunc computes the arithmetic mean of the non-null values.
type AvgFunc struct{}

func (f *AvgFunc) Name() string { return "AVG" }
func (f *AvgFunc) Evaluate(values []interface{}) (interface{}, error) {
	if len(values) == 0 {
		return nil, newError(ErrEmptyAggregate, "", "AVG", "AVG over empty input")
	}
	nums, err := numbers("AVG", values)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, nil
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums)), nil
}

// MinFunc returns the smallest non-null value.
type MinFunc struct{}

func (f *MinFunc) Name() string { return "MIN" }
func (f *MinFunc) Evaluate(values []interface{}) (interface{}, error) {
	return extreme("MIN", values, -1)
}

// MaxFunc returns the largest non-null value.
type MaxFunc struct{}

func (f *MaxFunc) Name() string { return "MAX" }
func (f *MaxFunc) Evaluate(values []interface{}) (interface{}, error) {
	return extreme("MAX", values, 1)
}

// extreme picks the value whose ordering against every other value has the
// given sign. The original value is returned, not a widened copy.
func extreme(name string, values []interface{}, sign int) (interface{}, error) {
	if len(values) == 0 {
		return nil, newError(ErrEmptyAggregate, "", name, "%s over empty input", name)
	}
	var best interface{}
	for _, v := range values {
		if isNull(v) {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		c, ok := orderValues(v, best)
		if !ok {
			return nil, newError(ErrInvalidOperand, "", name, "%s: cannot compare %T with %T", name, v, best)
		}
		if c*sign > 0 {
			best = v
		}
	}
	return best, nil
}

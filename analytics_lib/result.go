package analytics

import "fmt"

// Dimension names one independently computed analytic of a snapshot
type Dimension string

const (
	DimOISkew       Dimension = "oi_skew"
	DimEfficiency   Dimension = "volume_oi_efficiency"
	DimGamma        Dimension = "gamma_exposure"
	DimPremium      Dimension = "theoretical_vs_market"
	DimSmile        Dimension = "vol_smile"
	DimTopBuildups  Dimension = "top_buildups"
	DimBuildUp      Dimension = "build_up"
	DimSignals      Dimension = "signals"
	DimRollover     Dimension = "rollover"
	DimChainSummary Dimension = "chain_summary"
)

// ErrorKind classifies why a dimension could not be produced
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindMissingData  ErrorKind = "missing_data"
	KindNonFinite    ErrorKind = "non_finite"
	KindInternal     ErrorKind = "internal"
)

// DimensionError reports the failure of a single dimension
type DimensionError struct {
	Dimension Dimension `json:"dimension"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Dimension, e.Kind, e.Message)
}

// Result is the outcome of one dimension: a value or the reason there is none
type Result[T any] struct {
	Value T
	Err   *DimensionError
}

// OK reports whether the dimension succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

func success[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func failure[T any](dim Dimension, kind ErrorKind, format string, args ...interface{}) Result[T] {
	return Result[T]{Err: &DimensionError{Dimension: dim, Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

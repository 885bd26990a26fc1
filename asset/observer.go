package asset

import "time"

// Observer receives fetch telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	// ObserveFetch records one network round trip.
	ObserveFetch(elapsed time.Duration, received int, err error)
	// ObserveDecode records one codec decode.
	ObserveDecode(elapsed time.Duration, err error)
	// ObserveRefinement records a re-fetch with a wider byte budget.
	ObserveRefinement()
	// ObserveResult records the final outcome of a Load.
	ObserveResult(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(time.Duration, int, error) {}
func (nopObserver) ObserveDecode(time.Duration, error)     {}
func (nopObserver) ObserveRefinement()                     {}
func (nopObserver) ObserveResult(error)                    {}

// NopObserver returns an observer that discards everything.
func NopObserver() Observer {
	return nopObserver{}
}

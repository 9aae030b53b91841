package engine

import "time"

// Observer is notified about pipeline activity. Implementations must be
// safe for concurrent use across engines.
type Observer interface {
	ObserveDispatch(accepted bool, reason Reason)
	ObserveBoarding(color int)
	ObserveDeparture(color int)
	ObservePipeline(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveDispatch(bool, Reason)  {}
func (nopObserver) ObserveBoarding(int)           {}
func (nopObserver) ObserveDeparture(int)          {}
func (nopObserver) ObservePipeline(time.Duration) {}

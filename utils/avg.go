package utils

import "sync"

// AvgVal is a running average, used for batch-size telemetry. The mean
// is over observed samples only; before the first Add it reads zero.
type AvgVal struct {
	v     float64
	count int
	lock  sync.Mutex
}

func NewAvgVal() *AvgVal {
	return &AvgVal{}
}

func (a *AvgVal) Count() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.count
}

func (a *AvgVal) Add(val float64) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.v = (float64(a.count)*a.v + val) / float64(a.count+1)
	a.count++
}

func (a *AvgVal) Val() float64 {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.v
}

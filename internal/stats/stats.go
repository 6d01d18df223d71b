package stats

// Counters tracks request outcomes for one worker. Workers own their
// counters exclusively, so no atomics are needed.
type Counters struct {
	Attempted uint64 `json:"attempted"`
	Success   uint64 `json:"success"`
}

// Record counts one attempted request and, if ok, one success.
func (c *Counters) Record(ok bool) {
	c.Attempted++
	if ok {
		c.Success++
	}
}

// Add folds other into c.
func (c *Counters) Add(other Counters) {
	c.Attempted += other.Attempted
	c.Success += other.Success
}

func (c Counters) Failed() uint64 {
	return c.Attempted - c.Success
}

// SuccessRate returns the success percentage, 0 when nothing was attempted.
func (c Counters) SuccessRate() float64 {
	if c.Attempted == 0 {
		return 0
	}
	return float64(c.Success) / float64(c.Attempted) * 100
}

// ErrorRate is the complement of SuccessRate.
func (c Counters) ErrorRate() float64 {
	if c.Attempted == 0 {
		return 0
	}
	return float64(c.Failed()) / float64(c.Attempted) * 100
}

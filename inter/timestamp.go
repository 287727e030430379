package inter

import "time"

// Timestamp is a block timestamp in Unix nanoseconds. All protocol timing
// (crowdsale deadlines, bonus decay) compares against the timestamp of
// the block being applied, never against the wall clock, so replaying the
// same chain always yields the same ledger.
type Timestamp uint64

// FromUnix converts Unix seconds to a Timestamp.
func FromUnix(sec int64) Timestamp {
	return Timestamp(sec) * Timestamp(time.Second)
}

// Unix returns the timestamp truncated to Unix seconds.
func (t Timestamp) Unix() int64 {
	return int64(t / Timestamp(time.Second))
}

// Time converts the timestamp to a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t))
}

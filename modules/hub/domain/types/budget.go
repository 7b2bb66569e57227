package types

import "time"

// Budget is a per-(tenant, subject) spending cap over a rolling epoch.
// The epoch rolls lazily: elapsed whole epochs are applied on the first
// touch after expiry, resetting UsedInEpoch and advancing EpochStart by
// whole multiples of EpochLength.
type Budget struct {
	SubjectKey  string
	CapPerEpoch int64
	UsedInEpoch int64
	EpochLength time.Duration
	EpochStart  time.Time
}

const (
	EpochLengthMin = time.Hour
	EpochLengthMax = 365 * 24 * time.Hour
)

// Roll applies any elapsed whole epochs as of now. It reports whether the
// window moved.
func (b *Budget) Roll(now time.Time) bool {
	if b.EpochLength <= 0 {
		return false
	}
	elapsed := now.Sub(b.EpochStart)
	if elapsed < b.EpochLength {
		return false
	}
	n := elapsed / b.EpochLength
	b.EpochStart = b.EpochStart.Add(n * b.EpochLength)
	b.UsedInEpoch = 0
	return true
}

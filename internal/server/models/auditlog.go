package models

import "time"

// LogBatch is one flush of the audit log file. Write-once.
type LogBatch struct {
	ID        string
	Timestamp time.Time
	Logs      []string
}

// UnixSeconds returns the batch time as fractional seconds, the stored form.
func (b *LogBatch) UnixSeconds() float64 {
	return float64(b.Timestamp.UnixNano()) / 1e9
}

// Package dataset resolves serial numbers to download links from the
// immutable record list loaded at startup.
package dataset

import (
	"strconv"
	"strings"

	"github.com/dmitrijs2005/serialgate/internal/server/models"
)

// Index is a read-only view over the serial records. Safe for concurrent use
// because nothing mutates it after New.
type Index struct {
	records []models.SerialRecord
}

// New copies records so later changes to the caller's slice are not visible.
func New(records []models.SerialRecord) *Index {
	cp := make([]models.SerialRecord, len(records))
	copy(cp, records)
	return &Index{records: cp}
}

// Lookup returns the first record whose serial equals serial.
func (x *Index) Lookup(serial int64) (models.SerialRecord, bool) {
	for _, r := range x.records {
		if r.SerialNum == serial {
			return r, true
		}
	}
	return models.SerialRecord{}, false
}

func (x *Index) Len() int { return len(x.records) }

// IsNumeric reports whether text is made of ASCII digits only, surrounding
// whitespace ignored. Numeric text is always routed to the index, never to
// the validator, regardless of magnitude.
func IsNumeric(text string) bool {
	s := strings.TrimSpace(text)
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseSerial converts numeric text to a serial. Numbers beyond int64 yield
// false; no record can carry them.
func ParseSerial(text string) (int64, bool) {
	if !IsNumeric(text) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

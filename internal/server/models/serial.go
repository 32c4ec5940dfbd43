package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SerialRecord maps a serial number to a downloadable file.
type SerialRecord struct {
	SerialNum int64  `json:"serial_num"`
	FileName  string `json:"file_name"`
	Link      string `json:"link"`
}

// UnmarshalJSON accepts serial_num as a JSON number or as a numeric string;
// upstream feeds are not consistent about it.
func (r *SerialRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		SerialNum json.RawMessage `json:"serial_num"`
		FileName  string          `json:"file_name"`
		Link      string          `json:"link"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	n, err := parseSerialNum(raw.SerialNum)
	if err != nil {
		return err
	}

	r.SerialNum = n
	r.FileName = raw.FileName
	r.Link = raw.Link
	return nil
}

func parseSerialNum(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("serial_num is missing")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	// integral floats such as 42.0
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("serial_num %s is not an integer", string(raw))
	}
	return int64(f), nil
}

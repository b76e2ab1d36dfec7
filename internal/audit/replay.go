package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ReplayFilter holds filtering criteria for audit replay. Zero-value fields
// match everything.
type ReplayFilter struct {
	UserID   string
	DeviceID string
	From     time.Time
	To       time.Time
}

// ReplaySummary holds command counts and metadata for a replayed slice of
// the audit log.
type ReplaySummary struct {
	Total          int            `json:"total"`
	ByCommand      map[string]int `json:"by_command,omitempty"`
	ByDevice       map[string]int `json:"by_device,omitempty"`
	FirstTimestamp string         `json:"first_timestamp,omitempty"`
	LastTimestamp  string         `json:"last_timestamp,omitempty"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	Entries []Entry       `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
// Malformed lines are skipped; Verify is the tool for integrity checking.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}

		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		if filter.DeviceID != "" && entry.DeviceID != filter.DeviceID {
			continue
		}
		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

func updateSummary(s *ReplaySummary, entry Entry) {
	s.Total++

	if s.ByCommand == nil {
		s.ByCommand = make(map[string]int)
	}
	if s.ByDevice == nil {
		s.ByDevice = make(map[string]int)
	}
	s.ByCommand[entry.Command]++
	s.ByDevice[entry.DeviceID]++

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}

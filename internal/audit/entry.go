package audit

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Entry is one line in the hash-chained JSONL audit log: a single executed
// device command. Parameters is the only map field; json.Marshal sorts map
// keys, so marshaling stays deterministic for reproducible hashing.
type Entry struct {
	Timestamp   string         `json:"ts"`
	UserID      string         `json:"user_id"`
	DeviceID    string         `json:"device_id"`
	DeviceName  string         `json:"device_name"`
	DeviceType  string         `json:"device_type"`
	Command     string         `json:"command"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	TrustScore  int            `json:"trust_score"`
	CatalogHash string         `json:"catalog_hash,omitempty"`
	PrevHash    string         `json:"prev_hash"`
}

package optimizer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	atomicfile "github.com/natefinch/atomic"
)

// Snapshot is the on-disk shape of token_history/token_metrics.json
// (spec §6 persisted layout).
type Snapshot struct {
	Metrics     []Record         `json:"metrics"`
	ModelUsage  map[string]int   `json:"modelUsage"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

// Persist atomically writes the optimizer's recorded history to path,
// mirroring the idempotency store's atomic.WriteFile persistence idiom.
func (o *Optimizer) Persist(path string) error {
	o.mu.Lock()
	usage := make(map[string]int, len(o.ratios))
	records := make([]Record, len(o.history))
	copy(records, o.history)
	o.mu.Unlock()

	for _, r := range records {
		if r.ModelID != "" {
			usage[r.ModelID] += r.OptimizedTokens
		}
	}

	snapshot := Snapshot{Metrics: records, ModelUsage: usage, LastUpdated: time.Now()}
	buf, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicfile.WriteFile(path, bytes.NewReader(buf))
}

// LoadSnapshot reads a previously persisted token_metrics.json, returning
// a zero-value Snapshot if the file does not exist yet.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{ModelUsage: map[string]int{}}, nil
		}
		return Snapshot{}, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

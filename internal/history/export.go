package history

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// Export is the root JSON structure of an exported history.
type Export struct {
	ExportedAt time.Time    `json:"exportedAt"`
	Count      int          `json:"count"`
	Poses      []PoseExport `json:"poses"`
}

// PoseExport is one published pose.
type PoseExport struct {
	Topic      string                         `json:"topic"`
	RecordedAt time.Time                      `json:"recordedAt"`
	Yaw        float64                        `json:"yaw"`
	Message    msgs.PoseWithCovarianceStamped `json:"message"`
}

// BuildExport converts records into the export structure, keeping their order.
func BuildExport(records []Record, at time.Time) Export {
	out := Export{
		ExportedAt: at.UTC(),
		Count:      len(records),
		Poses:      make([]PoseExport, 0, len(records)),
	}
	for _, r := range records {
		out.Poses = append(out.Poses, PoseExport{
			Topic:      r.Topic,
			RecordedAt: r.RecordedAt.UTC(),
			Yaw:        r.Pose.Pose.Pose.Orientation.Yaw(),
			Message:    r.Pose,
		})
	}
	return out
}

// WriteExport writes records to path as JSON, gzipped when path ends in ".gz".
func WriteExport(path string, records []Record, at time.Time) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}
	return json.NewEncoder(w).Encode(BuildExport(records, at))
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics_writer.go
Description: Utility for persisting learning session metrics. Writes timestamped
JSON snapshots of pipeline counters into a per-session metrics directory for
offline analysis of search budgets and corpus quality.
*/

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteSessionMetrics writes a metrics snapshot for the session into
// metricsDir, named by timestamp and session ID. Returns the file path.
func WriteSessionMetrics(metricsDir string, sessionID string, snapshot interface{}) (string, error) {
	if err := os.MkdirAll(metricsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metrics directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s.json", timestamp, sessionID)
	filePath := filepath.Join(metricsDir, filename)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}

	return filePath, nil
}

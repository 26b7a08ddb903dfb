package presto

import (
	"encoding/json"
	"time"
)

// StatementStats is the progress summary the coordinator attaches to every
// statement response.
type StatementStats struct {
	State                   string `json:"state"`
	WaitingForPrerequisites bool   `json:"waitingForPrerequisites"`
	Queued                  bool   `json:"queued"`
	Scheduled               bool   `json:"scheduled"`
	Nodes                   int    `json:"nodes"`
	TotalSplits             int    `json:"totalSplits"`
	QueuedSplits            int    `json:"queuedSplits"`
	RunningSplits           int    `json:"runningSplits"`
	CompletedSplits         int    `json:"completedSplits"`
	CpuTimeMillis           int64  `json:"cpuTimeMillis"`
	WallTimeMillis          int64  `json:"wallTimeMillis"`
	QueuedTimeMillis        int64  `json:"queuedTimeMillis"`
	ElapsedTimeMillis       int64  `json:"elapsedTimeMillis"`
	ProcessedRows           int64  `json:"processedRows"`
	ProcessedBytes          int64  `json:"processedBytes"`
	PeakMemoryBytes         int64  `json:"peakMemoryBytes"`
	SpilledBytes            int64  `json:"spilledBytes"`

	// RootStage is kept raw; stage trees are large and rarely needed.
	RootStage json.RawMessage `json:"rootStage,omitempty"`
}

// Elapsed returns the elapsed wall time reported by the coordinator.
func (s *StatementStats) Elapsed() time.Duration {
	if s == nil {
		return 0
	}
	return time.Duration(s.ElapsedTimeMillis) * time.Millisecond
}

// IsFinished reports whether the statement reached a terminal state.
func (s *StatementStats) IsFinished() bool {
	if s == nil {
		return false
	}
	switch s.State {
	case "FINISHED", "FAILED", "CANCELED":
		return true
	}
	return false
}

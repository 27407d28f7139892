package models

import "time"

type Student struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// AnalysisResult is one persisted aggregate row for a video. Exactly one of
// Behavior or Emotion carries a label; the other holds the NotApplicable
// sentinel. Duration counts sampled-frame occurrences, not elapsed seconds.
type AnalysisResult struct {
	ID        string
	VideoID   string
	StudentID int64
	Behavior  string
	Emotion   string
	Duration  float64
	CreatedAt time.Time
}

// NotApplicable pads the unused label column of an AnalysisResult row.
const NotApplicable = "N/A"

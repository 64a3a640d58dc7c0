package domain

import "time"

// HintKind is the derived type of a hint entry, used by the surface for
// rendering and by prompt construction for tone.
type HintKind string

const (
	HintConceptual     HintKind = "conceptual"
	HintApproach       HintKind = "approach"
	HintImplementation HintKind = "implementation"
)

// HintEntry is one disclosed hint within a progressive session.
// Invariant: entry i of a session has Level i+1.
type HintEntry struct {
	Level     int       `json:"level"`
	Content   string    `json:"content"`
	Kind      HintKind  `json:"kind"`
	HasCode   bool      `json:"hasCode"`
	CreatedAt time.Time `json:"createdAt"`
}

// CodeContext is the caller's current editor state, frozen at session start
// and sampled into the evolution log on later writes.
type CodeContext struct {
	Code        string
	Language    string
	Description string
}

// CodeSnapshot is one entry of the bounded code-evolution log.
type CodeSnapshot struct {
	Code     string    `json:"code"`
	Language string    `json:"language"`
	TakenAt  time.Time `json:"takenAt"`
}

// SessionContext is the read view handed to prompt construction.
type SessionContext struct {
	ProblemTitle string
	Level        int
	MaxLevel     int
	Hints        []HintEntry
	Initial      CodeContext
	Concepts     []string
	// RecentEvolution holds at most the last 3 code snapshots.
	RecentEvolution []CodeSnapshot
	ProgressScore   float64
	Duration        time.Duration
}

package domain

// JobStatus tracks each stage of a single alignment job.
type JobStatus string

const (
	JobStatusIdle     JobStatus = "idle"
	JobStatusReading  JobStatus = "reading"
	JobStatusAligning JobStatus = "aligning"
	JobStatusWriting  JobStatus = "writing"
	JobStatusDone     JobStatus = "done"
	JobStatusFailed   JobStatus = "failed"
)

// Settings contains user-selectable runtime configuration.
// The API credential is intentionally absent: it is read from the
// environment or entered per session and never persisted.
type Settings struct {
	Model          string `json:"model"`
	OutputDir      string `json:"outputDir"`
	MaxLineChars   int    `json:"maxLineChars"`
	CountLatin     bool   `json:"countLatin"`
	RequireMapping bool   `json:"requireMapping"`
}

// Job stores the current job identity and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}

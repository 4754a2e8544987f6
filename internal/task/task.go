package task

import (
	"time"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRemoved    Status = "removed"
)

// Params is the fully resolved generation payload. It is immutable once the
// task is admitted; re-running a prompt means submitting a new task.
type Params struct {
	Model                 string  `json:"model_type"`
	Prompt                string  `json:"prompt"`
	NegativePrompt        string  `json:"negative_prompt"`
	Resolution            string  `json:"resolution"`
	Width                 int     `json:"width"`
	Height                int     `json:"height"`
	VideoLength           int     `json:"video_length"`
	Steps                 int     `json:"num_inference_steps"`
	GuidanceScale         float64 `json:"guidance_scale"`
	Seed                  int64   `json:"seed"`
	BatchSize             int     `json:"batch_size"`
	FlowShift             float64 `json:"flow_shift"`
	EmbeddedGuidanceScale float64 `json:"embedded_guidance_scale"`

	// Decoded reference images, if the request carried any.
	ImageStart []byte   `json:"-"`
	ImageEnd   []byte   `json:"-"`
	ImageRefs  [][]byte `json:"-"`
}

type Task struct {
	ID          int64     `json:"id"`
	Params      Params    `json:"params"`
	RepeatCount int       `json:"repeat_count"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	// Progress fields are meaningful only while Status is processing.
	Progress    float64   `json:"progress"`
	CurrentStep int       `json:"current_step"`
	TotalSteps  int       `json:"total_steps"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}

// View is a read-only copy of a task as seen in a queue snapshot, with the
// derived 1-based position filled in by the store.
type View struct {
	ID          int64     `json:"id"`
	Prompt      string    `json:"prompt"`
	Status      Status    `json:"status"`
	Length      int       `json:"length"`
	Steps       int       `json:"steps"`
	Position    int       `json:"position"`
	Progress    float64   `json:"progress"`
	CurrentStep int       `json:"current_step"`
	TotalSteps  int       `json:"total_steps"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
}

// Result is the terminal outcome of a task, as stored in the completed
// archive. Entries are written once and never mutated.
type Result struct {
	TaskID      int64     `json:"task_id"`
	Status      Status    `json:"status"`
	Prompt      string    `json:"prompt"`
	Files       []string  `json:"files"`
	Error       string    `json:"error,omitempty"`
	DurationSec float64   `json:"generation_time_seconds"`
	FinishedAt  time.Time `json:"finished_at"`
}

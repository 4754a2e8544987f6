// Package engine defines the generation-engine collaborator consumed by the
// worker. The real inference backend lives outside this process; Sim stands
// in for it so the queue can be exercised end to end.
package engine

import (
	"context"

	"github.com/videogen/genqueue/internal/task"
)

// ProgressFunc receives engine progress: overall percentage plus the current
// and total step counters across all repeats.
type ProgressFunc func(progress float64, step, totalSteps int)

// Generator runs one admitted task to completion and returns the names of
// the artifact files it produced in the output directory.
type Generator interface {
	Generate(ctx context.Context, t task.Task, report ProgressFunc) ([]string, error)
}

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/videogen/genqueue/internal/task"
)

// Sim is a placeholder generator: it paces through the requested steps for
// each repetition and emits an empty artifact file per repeat. Deployments
// swap in a real backend behind the Generator interface.
type Sim struct {
	outputDir string
	stepDelay time.Duration
}

func NewSim(outputDir string, stepDelay time.Duration) (*Sim, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Sim{outputDir: outputDir, stepDelay: stepDelay}, nil
}

func (s *Sim) Generate(ctx context.Context, t task.Task, report ProgressFunc) ([]string, error) {
	totalSteps := t.Params.Steps * t.RepeatCount
	done := 0

	var files []string
	for rep := 0; rep < t.RepeatCount; rep++ {
		for step := 0; step < t.Params.Steps; step++ {
			select {
			case <-ctx.Done():
				return files, ctx.Err()
			case <-time.After(s.stepDelay):
			}
			done++
			report(float64(done)/float64(totalSteps)*100, done, totalSteps)
		}

		name := fmt.Sprintf("%s_%s.mp4", t.Params.Model, uuid.NewString())
		if err := os.WriteFile(filepath.Join(s.outputDir, name), nil, 0o644); err != nil {
			return files, fmt.Errorf("write artifact: %w", err)
		}
		files = append(files, name)
	}
	return files, nil
}

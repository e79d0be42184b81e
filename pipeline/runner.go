package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketflow/logger"
)

// Stage is one step of the batch run.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes stages strictly in the order given, one at a time. The
// first failing stage aborts the run; there is no retry and no
// partial-resume checkpointing.
type Runner struct {
	stages []Stage
	log    *logger.Log
}

func NewRunner(stages []Stage) *Runner {
	return &Runner{
		stages: stages,
		log:    logger.GetLogger(),
	}
}

// StageNames lists the configured stages in execution order.
func (r *Runner) StageNames() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name
	}
	return names
}

// Run executes the requested stages. "all" (or an empty request) selects
// every stage; a subset still executes in the fixed pipeline order no matter
// how it was spelled on the command line.
func (r *Runner) Run(ctx context.Context, requested []string) error {
	selected, err := r.resolve(requested)
	if err != nil {
		return err
	}

	log := r.log.WithComponent("pipeline")

	for _, stage := range r.stages {
		if _, ok := selected[stage.Name]; !ok {
			continue
		}

		log.WithFields(logger.Fields{"stage": stage.Name}).Info("stage starting")
		start := time.Now()

		if err := stage.Run(ctx); err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"stage":       stage.Name,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Error("stage failed, aborting run")
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		log.WithFields(logger.Fields{
			"stage":       stage.Name,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("stage complete")
	}

	return nil
}

func (r *Runner) resolve(requested []string) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(r.stages))
	for _, s := range r.stages {
		known[s.Name] = struct{}{}
	}

	selected := make(map[string]struct{}, len(r.stages))
	if len(requested) == 0 {
		requested = []string{"all"}
	}
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if name == "all" {
			for n := range known {
				selected[n] = struct{}{}
			}
			continue
		}
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown stage %q (known: %s)", name, strings.Join(r.StageNames(), ", "))
		}
		selected[name] = struct{}{}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("no stages selected")
	}
	return selected, nil
}

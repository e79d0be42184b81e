package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func recordingStages(order *[]string, fail map[string]error) []Stage {
	names := []string{"bronze_fx", "bronze_ptax", "silver_fx", "gold"}
	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		name := name
		stages = append(stages, Stage{
			Name: name,
			Run: func(ctx context.Context) error {
				*order = append(*order, name)
				return fail[name]
			},
		})
	}
	return stages
}

func TestRunnerRunsAllInOrder(t *testing.T) {
	var order []string
	r := NewRunner(recordingStages(&order, nil))

	if err := r.Run(context.Background(), []string{"all"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []string{"bronze_fx", "bronze_ptax", "silver_fx", "gold"}
	if len(order) != len(want) {
		t.Fatalf("expected %d stages, got %v", len(want), order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("stage %d = %s, want %s", i, order[i], name)
		}
	}
}

func TestRunnerFirstFailureAborts(t *testing.T) {
	var order []string
	sentinel := errors.New("upstream down")
	r := NewRunner(recordingStages(&order, map[string]error{"bronze_ptax": sentinel}))

	err := r.Run(context.Background(), []string{"all"})
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("expected the stage error to be wrapped: %v", err)
	}
	if !strings.Contains(err.Error(), "bronze_ptax") {
		t.Errorf("error should name the failing stage: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("later stages should not run after a failure, ran %v", order)
	}
}

func TestRunnerSubsetKeepsPipelineOrder(t *testing.T) {
	var order []string
	r := NewRunner(recordingStages(&order, nil))

	// Requested out of order on purpose.
	if err := r.Run(context.Background(), []string{"gold", "bronze_fx"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(order) != 2 || order[0] != "bronze_fx" || order[1] != "gold" {
		t.Errorf("subset should run in pipeline order, ran %v", order)
	}
}

func TestRunnerRejectsUnknownStage(t *testing.T) {
	var order []string
	r := NewRunner(recordingStages(&order, nil))

	err := r.Run(context.Background(), []string{"platinum"})
	if err == nil {
		t.Fatal("expected error for an unknown stage")
	}
	if len(order) != 0 {
		t.Errorf("nothing should run on a bad request, ran %v", order)
	}
}

func TestPipelineStageOrder(t *testing.T) {
	p := &Pipeline{}
	stages := p.Stages()

	want := []string{
		"bronze_fx", "bronze_crypto", "bronze_ptax", "bronze_index",
		"silver_fx", "silver_crypto", "silver_index", "gold",
	}
	if len(stages) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(stages))
	}
	for i, name := range want {
		if stages[i].Name != name {
			t.Errorf("stage %d = %s, want %s", i, stages[i].Name, name)
		}
	}
}

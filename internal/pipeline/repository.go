package pipeline

import (
	"context"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/repository"
	"github.com/rs/zerolog/log"
)

// tracker records stage executions in the pipeline_runs table. Tracking is
// best effort: a failing tracker is logged and never fails the stage.
type tracker struct {
	runs repository.PipelineRunRepository
}

func (t tracker) start(ctx context.Context, stage, item, inputHash string) *domain.PipelineRun {
	run := &domain.PipelineRun{
		Stage:     stage,
		ItemName:  item,
		InputHash: inputHash,
		Status:    domain.RunStatusProcessing,
	}
	if t.runs == nil {
		return run
	}
	if err := t.runs.CreateRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("stage", stage).Str("item", item).Msg("failed to record pipeline run")
	}
	return run
}

func (t tracker) finish(ctx context.Context, run *domain.PipelineRun, status string, rows int, stageErr error) {
	run.Status = status
	run.RowCount = rows
	if stageErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = stageErr.Error()
	}
	if t.runs == nil || run.ID == 0 {
		return
	}
	if err := t.runs.FinishRun(ctx, run); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("failed to update pipeline run")
	}
}

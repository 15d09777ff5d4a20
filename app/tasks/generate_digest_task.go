package tasks

import (
	"context"
	"log/slog"
)

// Runner produces a fresh digest end to end (fetch, render, store, upload).
type Runner interface {
	Generate(ctx context.Context) error
}

type GenerateDigestTask struct {
	Task
	runner Runner
}

func NewGenerateDigestTask(runner Runner) *GenerateDigestTask {
	return &GenerateDigestTask{
		Task:   NewTask(TaskTypeGenerateDigest),
		runner: runner,
	}
}

func (t *GenerateDigestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.runner.Generate(ctx); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration())

	return nil
}

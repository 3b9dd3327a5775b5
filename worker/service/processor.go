package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"treeAnalysis/worker/analyzer"
	"treeAnalysis/worker/kafka"
	"treeAnalysis/worker/metrics"
	"treeAnalysis/worker/normalizer"
	"treeAnalysis/worker/repository"
	"treeAnalysis/worker/webhook"
)

// ImageNormalizer is what the processor needs from the image pipeline.
type ImageNormalizer interface {
	Normalize(inputPath, outputPath string) (*normalizer.Metadata, error)
}

// StatusSetter pushes status transitions into the shared cache.
type StatusSetter interface {
	Set(ctx context.Context, ownerID, taskID int64, status string) error
}

// Reporter delivers terminal transitions through the API webhook.
type Reporter interface {
	Report(ctx context.Context, payload *webhook.Payload) error
}

type Processor struct {
	repo      repository.Repository
	cache     StatusSetter
	images    ImageNormalizer
	generator analyzer.ResultGenerator
	notifier  Reporter // nil means direct database completion
	uploadDir string
	logger    *zap.Logger
}

func NewProcessor(repo repository.Repository, cache StatusSetter, images ImageNormalizer, generator analyzer.ResultGenerator, notifier Reporter, uploadDir string, logger *zap.Logger) *Processor {
	return &Processor{
		repo:      repo,
		cache:     cache,
		images:    images,
		generator: generator,
		notifier:  notifier,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Process runs one job to a terminal state. The queue delivers at least
// once, so every step tolerates running twice for the same task id: the
// claim treats processing->processing as a no-op and skips terminal
// rows, and the terminal update is guarded by the row's current status.
func (p *Processor) Process(ctx context.Context, msg *kafka.TaskMessage) error {
	claimed, err := p.repo.ClaimTask(ctx, msg.TaskID)
	if err != nil {
		return err
	}
	if !claimed {
		metrics.TasksSkipped.Inc()
		p.logger.Info("Skipping task in terminal state",
			zap.String("trace_id", msg.TraceID),
			zap.Int64("task_id", msg.TaskID),
		)
		return nil
	}

	if err := p.cache.Set(ctx, msg.OwnerID, msg.TaskID, "processing"); err != nil {
		p.logger.Warn("Failed to cache status", zap.Int64("task_id", msg.TaskID), zap.Error(err))
	}

	start := time.Now()

	outputPath := normalizer.OutputPath(p.uploadDir, msg.OriginalPath)
	meta, err := p.images.Normalize(msg.OriginalPath, outputPath)
	if err != nil {
		return p.fail(ctx, msg, fmt.Errorf("normalize: %w", err))
	}

	result, err := p.generator.Analyze(ctx, msg.OriginalPath)
	if err != nil {
		// A canceled context means shutdown, not a bad image; leave the
		// task processing so a redelivery picks it back up.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return p.fail(ctx, msg, fmt.Errorf("analyze: %w", err))
	}

	result.Metadata = &analyzer.FileMetadata{
		OriginalSize:    meta.OriginalSize,
		ProcessedSize:   meta.ProcessedSize,
		OriginalWidth:   meta.OriginalWidth,
		OriginalHeight:  meta.OriginalHeight,
		ProcessedWidth:  meta.ProcessedWidth,
		ProcessedHeight: meta.ProcessedHeight,
		OriginalName:    filepath.Base(msg.OriginalPath),
	}

	if p.notifier != nil {
		err = p.notifier.Report(ctx, &webhook.Payload{
			TaskID:     msg.TaskID,
			Status:     "completed",
			ResultPath: outputPath,
			Result:     result,
		})
	} else {
		var resultJSON []byte
		resultJSON, err = json.Marshal(result)
		if err == nil {
			err = p.repo.CompleteTask(ctx, msg.TaskID, string(resultJSON), outputPath)
		}
	}
	if err != nil {
		p.logger.Error("Failed to record completion",
			zap.String("trace_id", msg.TraceID),
			zap.Int64("task_id", msg.TaskID),
			zap.Error(err),
		)
		return err
	}

	if err := p.cache.Set(ctx, msg.OwnerID, msg.TaskID, "completed"); err != nil {
		p.logger.Warn("Failed to cache status", zap.Int64("task_id", msg.TaskID), zap.Error(err))
	}

	metrics.TasksProcessed.WithLabelValues("completed").Inc()
	metrics.ProcessingDuration.Observe(time.Since(start).Seconds())

	p.logger.Info("Task completed",
		zap.String("trace_id", msg.TraceID),
		zap.Int64("task_id", msg.TaskID),
		zap.String("result_path", outputPath),
		zap.Duration("duration", time.Since(start)),
	)

	return nil
}

// fail records a terminal failure. Failed tasks stay failed; there is
// no retry at this layer.
func (p *Processor) fail(ctx context.Context, msg *kafka.TaskMessage, cause error) error {
	p.logger.Error("Task failed",
		zap.String("trace_id", msg.TraceID),
		zap.Int64("task_id", msg.TaskID),
		zap.Error(cause),
	)

	var err error
	if p.notifier != nil {
		err = p.notifier.Report(ctx, &webhook.Payload{
			TaskID:       msg.TaskID,
			Status:       "failed",
			ErrorMessage: cause.Error(),
		})
	} else {
		err = p.repo.FailTask(ctx, msg.TaskID, cause.Error())
	}
	if err != nil {
		p.logger.Error("Failed to record failure", zap.Int64("task_id", msg.TaskID), zap.Error(err))
		return err
	}

	if err := p.cache.Set(ctx, msg.OwnerID, msg.TaskID, "failed"); err != nil {
		p.logger.Warn("Failed to cache status", zap.Int64("task_id", msg.TaskID), zap.Error(err))
	}

	metrics.TasksProcessed.WithLabelValues("failed").Inc()

	return nil
}

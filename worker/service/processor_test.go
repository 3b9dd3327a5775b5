package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"treeAnalysis/worker/analyzer"
	"treeAnalysis/worker/kafka"
	"treeAnalysis/worker/normalizer"
	"treeAnalysis/worker/webhook"
)

type mockWorkerRepo struct {
	claimFunc    func(ctx context.Context, taskID int64) (bool, error)
	completeFunc func(ctx context.Context, taskID int64, resultJSON, processedPath string) error
	failFunc     func(ctx context.Context, taskID int64, errorMessage string) error

	completed []int64
	failed    []string
}

func (m *mockWorkerRepo) ClaimTask(ctx context.Context, taskID int64) (bool, error) {
	if m.claimFunc != nil {
		return m.claimFunc(ctx, taskID)
	}
	return true, nil
}

func (m *mockWorkerRepo) CompleteTask(ctx context.Context, taskID int64, resultJSON, processedPath string) error {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, taskID, resultJSON, processedPath)
	}
	m.completed = append(m.completed, taskID)
	return nil
}

func (m *mockWorkerRepo) FailTask(ctx context.Context, taskID int64, errorMessage string) error {
	if m.failFunc != nil {
		return m.failFunc(ctx, taskID, errorMessage)
	}
	m.failed = append(m.failed, errorMessage)
	return nil
}

type mockStatusCache struct {
	transitions []string
}

func (m *mockStatusCache) Set(ctx context.Context, ownerID, taskID int64, status string) error {
	m.transitions = append(m.transitions, status)
	return nil
}

type mockNormalizer struct {
	err    error
	called bool
}

func (m *mockNormalizer) Normalize(inputPath, outputPath string) (*normalizer.Metadata, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return &normalizer.Metadata{
		OriginalSize:    4096,
		ProcessedSize:   2048,
		OriginalWidth:   1600,
		OriginalHeight:  1200,
		ProcessedWidth:  800,
		ProcessedHeight: 600,
	}, nil
}

type mockGenerator struct {
	err error
}

func (m *mockGenerator) Analyze(ctx context.Context, imagePath string) (*analyzer.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &analyzer.Result{
		TreeType:           analyzer.TreeOak,
		TreeTypeConfidence: 0.85,
		OverallHealthScore: 0.75,
		ModelVersion:       "mock_v2.0",
	}, nil
}

type mockReporter struct {
	payloads []*webhook.Payload
	err      error
}

func (m *mockReporter) Report(ctx context.Context, payload *webhook.Payload) error {
	if m.err != nil {
		return m.err
	}
	m.payloads = append(m.payloads, payload)
	return nil
}

func testMessage() *kafka.TaskMessage {
	return &kafka.TaskMessage{
		TaskID:       7,
		TraceID:      "trace-7",
		OwnerID:      3,
		OriginalPath: "uploads/original/tree.jpg",
	}
}

func TestProcessor_Success(t *testing.T) {
	var gotJSON, gotPath string
	repo := &mockWorkerRepo{
		completeFunc: func(ctx context.Context, taskID int64, resultJSON, processedPath string) error {
			gotJSON, gotPath = resultJSON, processedPath
			return nil
		},
	}
	cache := &mockStatusCache{}
	p := NewProcessor(repo, cache, &mockNormalizer{}, &mockGenerator{}, nil, "uploads", zaptest.NewLogger(t))

	if err := p.Process(context.Background(), testMessage()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !strings.Contains(gotPath, "processed_tree.jpg") {
		t.Errorf("Unexpected processed path %q", gotPath)
	}

	var result analyzer.Result
	if err := json.Unmarshal([]byte(gotJSON), &result); err != nil {
		t.Fatalf("Stored result is not valid JSON: %v", err)
	}
	if result.TreeType != analyzer.TreeOak {
		t.Errorf("Expected oak, got %s", result.TreeType)
	}
	if result.Metadata == nil || result.Metadata.ProcessedWidth != 800 {
		t.Error("Result must carry normalization metadata")
	}
	if result.Metadata.OriginalName != "tree.jpg" {
		t.Errorf("Expected original_name tree.jpg, got %q", result.Metadata.OriginalName)
	}

	if len(cache.transitions) != 2 || cache.transitions[0] != "processing" || cache.transitions[1] != "completed" {
		t.Errorf("Unexpected cache transitions %v", cache.transitions)
	}
}

func TestProcessor_SkipsUnclaimedTask(t *testing.T) {
	repo := &mockWorkerRepo{
		claimFunc: func(ctx context.Context, taskID int64) (bool, error) {
			return false, nil
		},
	}
	images := &mockNormalizer{}
	p := NewProcessor(repo, &mockStatusCache{}, images, &mockGenerator{}, nil, "uploads", zaptest.NewLogger(t))

	if err := p.Process(context.Background(), testMessage()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if images.called {
		t.Error("Unclaimed task must not be processed")
	}
}

func TestProcessor_NormalizeFailureFailsTask(t *testing.T) {
	repo := &mockWorkerRepo{}
	cache := &mockStatusCache{}
	images := &mockNormalizer{err: errors.New("decode image: bad data")}
	p := NewProcessor(repo, cache, images, &mockGenerator{}, nil, "uploads", zaptest.NewLogger(t))

	if err := p.Process(context.Background(), testMessage()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(repo.failed) != 1 || !strings.Contains(repo.failed[0], "bad data") {
		t.Errorf("Expected failure recorded with cause, got %v", repo.failed)
	}
	if len(repo.completed) != 0 {
		t.Error("Failed task must not be completed")
	}
	if len(cache.transitions) == 0 || cache.transitions[len(cache.transitions)-1] != "failed" {
		t.Errorf("Expected final cache status failed, got %v", cache.transitions)
	}
}

func TestProcessor_CancelLeavesTaskForRedelivery(t *testing.T) {
	repo := &mockWorkerRepo{}
	p := NewProcessor(repo, &mockStatusCache{}, &mockNormalizer{}, &mockGenerator{err: context.Canceled}, nil, "uploads", zaptest.NewLogger(t))

	err := p.Process(context.Background(), testMessage())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(repo.failed) != 0 {
		t.Error("Cancellation must not mark the task failed")
	}
}

func TestProcessor_WebhookCompletion(t *testing.T) {
	repo := &mockWorkerRepo{}
	reporter := &mockReporter{}
	p := NewProcessor(repo, &mockStatusCache{}, &mockNormalizer{}, &mockGenerator{}, reporter, "uploads", zaptest.NewLogger(t))

	if err := p.Process(context.Background(), testMessage()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(repo.completed) != 0 {
		t.Error("Webhook mode must not write completion directly")
	}
	if len(reporter.payloads) != 1 {
		t.Fatalf("Expected 1 webhook report, got %d", len(reporter.payloads))
	}
	payload := reporter.payloads[0]
	if payload.Status != "completed" || payload.TaskID != 7 {
		t.Errorf("Unexpected payload %+v", payload)
	}
	if payload.Result == nil {
		t.Error("Completed payload must carry the result")
	}
}

func TestProcessor_WebhookFailureReport(t *testing.T) {
	repo := &mockWorkerRepo{}
	reporter := &mockReporter{}
	images := &mockNormalizer{err: errors.New("decode image: truncated")}
	p := NewProcessor(repo, &mockStatusCache{}, images, &mockGenerator{}, reporter, "uploads", zaptest.NewLogger(t))

	if err := p.Process(context.Background(), testMessage()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(reporter.payloads) != 1 {
		t.Fatalf("Expected 1 webhook report, got %d", len(reporter.payloads))
	}
	payload := reporter.payloads[0]
	if payload.Status != "failed" || payload.ErrorMessage == "" {
		t.Errorf("Unexpected failure payload %+v", payload)
	}
	if len(repo.failed) != 0 {
		t.Error("Webhook mode must not write failure directly")
	}
}

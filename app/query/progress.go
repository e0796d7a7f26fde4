package query

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker manages progress reporting across multiple pipeline stages
type ProgressTracker struct {
	callback     ProgressCallback
	stages       map[string]*StageProgress
	totalStages  int
	currentStage int
	mutex        sync.Mutex
}

// StageProgress tracks progress for a single pipeline stage
type StageProgress struct {
	Name      string
	Current   int64
	Total     int64
	StartTime time.Time
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(callback ProgressCallback, totalStages int) *ProgressTracker {
	if callback == nil {
		callback = NoOpProgressCallback
	}
	return &ProgressTracker{
		callback:    callback,
		stages:      make(map[string]*StageProgress),
		totalStages: totalStages,
	}
}

// StartStage begins tracking a pipeline stage
func (p *ProgressTracker) StartStage(name string, estimatedRows int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.currentStage++
	p.stages[name] = &StageProgress{Name: name, Total: estimatedRows, StartTime: time.Now()}
	p.callback(name, 0, estimatedRows, fmt.Sprintf("Stage %d/%d: %s", p.currentStage, p.totalStages, name))
}

// CompleteStage marks a stage as completed. Stages served from the cache
// complete without having been started.
func (p *ProgressTracker) CompleteStage(name string, finalCount int64, cached bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	stage, exists := p.stages[name]
	if !exists {
		p.currentStage++
		stage = &StageProgress{Name: name, StartTime: time.Now()}
		p.stages[name] = stage
	}
	stage.Current = finalCount
	stage.Total = finalCount

	suffix := ""
	if cached {
		suffix = ", cached"
	}
	elapsed := time.Since(stage.StartTime).Truncate(time.Millisecond)
	p.callback(name, finalCount, finalCount,
		fmt.Sprintf("Stage %d/%d: %s completed (%d rows, %v%s)", p.currentStage, p.totalStages, name, finalCount, elapsed, suffix))
}

// GetStageProgress returns a copy of the progress for a specific stage
func (p *ProgressTracker) GetStageProgress(name string) *StageProgress {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	stage, exists := p.stages[name]
	if !exists {
		return nil
	}
	cp := *stage
	return &cp
}

// NoOpProgressCallback is a progress callback that does nothing
func NoOpProgressCallback(stage string, current, total int64, message string) {}

// LogProgressCallback creates a progress callback that logs to a provided function
func LogProgressCallback(logFunc func(level, message string)) ProgressCallback {
	return func(stage string, current, total int64, message string) {
		if logFunc != nil {
			logFunc("debug", fmt.Sprintf("[QUERY_PROGRESS] %s", message))
		}
	}
}

// ProgressEstimator estimates row counts for pipeline stages
type ProgressEstimator struct {
	inputRows int64
}

// NewProgressEstimator creates a new progress estimator
func NewProgressEstimator(inputRows int64) *ProgressEstimator {
	return &ProgressEstimator{inputRows: inputRows}
}

// EstimateStageOutput estimates the output size for a pipeline stage, -1 when unknown
func (e *ProgressEstimator) EstimateStageOutput(stage PipelineStage) int64 {
	if e.inputRows <= 0 {
		return -1
	}
	ratio := stage.EstimateOutputSize()
	if ratio < 0 {
		return -1
	}
	return int64(float64(e.inputRows) * ratio)
}

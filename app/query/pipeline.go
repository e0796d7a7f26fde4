package query

import (
	"context"
	"fmt"
	"log"

	"thebridge/app/cache"
)

// QueryPipeline orchestrates the execution of multiple pipeline stages
type QueryPipeline struct {
	stages      []PipelineStage
	cache       *cache.Cache
	progress    ProgressCallback
	ctx         context.Context
	datasetHash string // Identity of the input rows; empty disables caching
	cacheConfig CacheConfig
}

// NewQueryPipeline creates a new query pipeline
func NewQueryPipeline(ctx context.Context, datasetHash string, c *cache.Cache, progress ProgressCallback, config CacheConfig) *QueryPipeline {
	if progress == nil {
		progress = NoOpProgressCallback
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &QueryPipeline{
		ctx:         ctx,
		datasetHash: datasetHash,
		cache:       c,
		progress:    progress,
		cacheConfig: config,
	}
}

// AddStage adds a pipeline stage
func (p *QueryPipeline) AddStage(stage PipelineStage) {
	p.stages = append(p.stages, stage)
}

func (p *QueryPipeline) cachingEnabled() bool {
	return p.cache != nil && p.datasetHash != ""
}

// Execute runs the pipeline over input. Cancellation is checked between
// stages; a cancelled run returns ctx.Err() and no partial rows.
func (p *QueryPipeline) Execute(input *StageResult) (*QueryResult, error) {
	if p.cachingEnabled() && p.cacheConfig.EnablePipelineCache && p.canCacheResult() {
		cacheKey := BuildCacheKey(p.datasetHash, p.stages)
		if entry, found := p.cache.Get(cacheKey); found && entry.IsComplete {
			log.Printf("[CACHE_HIT] Using cached result for key: %s (%d rows)", cacheKey, len(entry.Rows))
			return &QueryResult{
				Header: entry.Header,
				Rows:   entry.Rows,
				Total:  int64(len(entry.Rows)),
				Cached: true,
			}, nil
		}
		log.Printf("[CACHE_MISS] No cached result for key: %s", cacheKey)
	} else if p.cache != nil && !p.cacheConfig.EnablePipelineCache {
		log.Printf("[CACHE_DISABLED] Pipeline cache disabled by user settings")
	}

	tracker := NewProgressTracker(p.progress, len(p.stages))
	estimator := NewProgressEstimator(int64(len(input.Rows)))
	currentResult := input
	executed := make([]PipelineStage, 0, len(p.stages))

	for i, stage := range p.stages {
		select {
		case <-p.ctx.Done():
			return nil, p.ctx.Err()
		default:
		}

		label := fmt.Sprintf("%s#%d", stage.Name(), i+1)
		stageKey := BuildCacheKey(p.datasetHash, append(executed, stage))
		useStageCache := p.cachingEnabled() && p.cacheConfig.EnableStageCache && stage.CanCache()

		if useStageCache {
			if entry, found := p.cache.GetStage(stageKey); found && entry.IsComplete {
				log.Printf("[CACHE_HIT_STAGE] Using cached result for stage %s: %s (%d rows)", label, stageKey, len(entry.Rows))
				currentResult = &StageResult{Header: entry.Header, Rows: entry.Rows}
				executed = append(executed, stage)
				tracker.CompleteStage(label, int64(len(entry.Rows)), true)
				estimator = NewProgressEstimator(int64(len(entry.Rows)))
				continue
			}
		}

		tracker.StartStage(label, estimator.EstimateStageOutput(stage))
		stageResult, err := stage.Execute(currentResult)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}

		if useStageCache && p.shouldCacheStage(stage, len(stageResult.Rows)) {
			p.cache.Store(stageKey, stageResult.Header, stageResult.Rows)
		}

		currentResult = stageResult
		executed = append(executed, stage)
		tracker.CompleteStage(label, int64(len(stageResult.Rows)), false)
		estimator = NewProgressEstimator(int64(len(stageResult.Rows)))
	}

	// Result rows are shallow copies so DisplayIndex can be assigned without
	// touching the dataset's rows. Cell data stays shared.
	rows := make([]*Row, len(currentResult.Rows))
	for i, row := range currentResult.Rows {
		rows[i] = &Row{RowIndex: row.RowIndex, DisplayIndex: i, Data: row.Data, Color: row.Color}
	}

	result := &QueryResult{
		Header: currentResult.Header,
		Rows:   rows,
		Total:  int64(len(rows)),
	}

	if p.cachingEnabled() && p.cacheConfig.EnablePipelineCache && p.canCacheResult() {
		cacheKey := BuildCacheKey(p.datasetHash, p.stages)
		log.Printf("[CACHE_STORE] Storing result for key: %s (%d rows)", cacheKey, len(result.Rows))
		p.cache.Store(cacheKey, result.Header, result.Rows)
	}

	return result, nil
}

// canCacheResult determines if the pipeline result should be cached
func (p *QueryPipeline) canCacheResult() bool {
	for _, stage := range p.stages {
		if !stage.CanCache() {
			return false
		}
	}
	return true
}

// shouldCacheStage determines if a stage result should be cached
func (p *QueryPipeline) shouldCacheStage(stage PipelineStage, rowCount int) bool {
	// pointer plus row struct overhead; cell data is shared
	estimatedSize := int64(rowCount) * 80
	if p.cacheConfig.CacheSizeLimit > 0 && estimatedSize > p.cacheConfig.CacheSizeLimit {
		log.Printf("[CACHE_SKIP] Stage %s result too large (%d bytes > %d limit)",
			stage.Name(), estimatedSize, p.cacheConfig.CacheSizeLimit)
		return false
	}
	return true
}

// GetStages returns a copy of the pipeline stages
func (p *QueryPipeline) GetStages() []PipelineStage {
	stages := make([]PipelineStage, len(p.stages))
	copy(stages, p.stages)
	return stages
}

// PipelineBuilder helps construct query pipelines
type PipelineBuilder struct {
	pipeline *QueryPipeline
}

// NewPipelineBuilder creates a new pipeline builder
func NewPipelineBuilder(ctx context.Context, datasetHash string, c *cache.Cache, progress ProgressCallback, cacheConfig CacheConfig) *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: NewQueryPipeline(ctx, datasetHash, c, progress, cacheConfig),
	}
}

// AddColumnFilter adds a single column predicate to the pipeline
func (b *PipelineBuilder) AddColumnFilter(stage *ColumnFilterStage) *PipelineBuilder {
	b.pipeline.AddStage(stage)
	return b
}

// AddTableFilters adds the header-icon filter layer to the pipeline
func (b *PipelineBuilder) AddTableFilters(filters map[string][]string) *PipelineBuilder {
	b.pipeline.AddStage(NewTableFilterStage(filters))
	return b
}

// AddDuplicate adds a duplicate-group filter to the pipeline
func (b *PipelineBuilder) AddDuplicate(df DuplicateFilter) *PipelineBuilder {
	b.pipeline.AddStage(NewDuplicateStage(df))
	return b
}

// AddGlobalSearch adds the global search pass to the pipeline
func (b *PipelineBuilder) AddGlobalSearch(search string) *PipelineBuilder {
	b.pipeline.AddStage(NewGlobalSearchStage(search))
	return b
}

// AddSort adds a sort stage to the pipeline
func (b *PipelineBuilder) AddSort(stage *SortStage) *PipelineBuilder {
	b.pipeline.AddStage(stage)
	return b
}

// Build returns the constructed pipeline
func (b *PipelineBuilder) Build() *QueryPipeline {
	return b.pipeline
}

package cache

import (
	"time"

	"thebridge/app/interfaces"
)

// Logger interface for cache logging
type Logger = interfaces.Logger

// CacheEntry represents a cached planner result or intermediate stage result
type CacheEntry struct {
	Header     []string
	Rows       []*interfaces.Row // Shared with the dataset, never copied
	IsComplete bool
	Size       int64
	AccessTime int64
	CreateTime time.Time
}

// CacheStats contains detailed cache statistics
type CacheStats struct {
	TotalEntries int                   `json:"totalEntries"`
	TotalSize    int64                 `json:"totalSize"`
	MaxSize      int64                 `json:"maxSize"`
	UsagePercent float64               `json:"usagePercent"`
	StageStats   map[string]StageStats `json:"stageStats"`

	PipelineCacheHits int64   `json:"pipelineCacheHits"`
	StageCacheHits    int64   `json:"stageCacheHits"`
	CacheMisses       int64   `json:"cacheMisses"`
	HitRate           float64 `json:"hitRate"`
	StageHitRate      float64 `json:"stageHitRate"`
}

// StageStats contains statistics for the entries ending in a given stage
type StageStats struct {
	EntryCount int   `json:"entryCount"`
	TotalSize  int64 `json:"totalSize"`
}

// DefaultCacheMaxSize is the default cache size limit (100MB)
const DefaultCacheMaxSize = 100 * 1024 * 1024

// Key layout: "ds:<datasetHash>|<stage>:<stageHash>|<stage>:<stageHash>..."
const (
	datasetPrefix = "ds:"
	keySeparator  = "|"
)

// DatasetPrefix returns the key prefix shared by every entry of a dataset.
func DatasetPrefix(datasetHash string) string {
	return datasetPrefix + datasetHash
}

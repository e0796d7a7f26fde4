package query

import (
	"strings"

	"thebridge/app/cache"
	"thebridge/app/fingerprint"
)

// BuildCacheKey creates a cache key for the output of stages applied to the
// dataset identified by datasetHash. Each stage contributes its name and a
// hash of its own key, so a key for stages[:n] is a prefix of the key for
// stages[:n+1] and filter values never appear verbatim in the key.
// Format: "ds:<datasetHash>|column_filter:<hash>|sort:<hash>"
func BuildCacheKey(datasetHash string, stages []PipelineStage) string {
	var b strings.Builder
	b.WriteString(cache.DatasetPrefix(datasetHash))
	for _, stage := range stages {
		if !stage.CanCache() {
			continue
		}
		b.WriteString("|")
		b.WriteString(stage.Name())
		b.WriteString(":")
		b.WriteString(fingerprint.String(stage.CacheKey()))
	}
	return b.String()
}

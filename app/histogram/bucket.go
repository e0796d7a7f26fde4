package histogram

// allowedBucketSizesSec matches the frontend bucket size options
var allowedBucketSizesSec = []int{
	1,                           // 1 second
	2,                           // 2 seconds
	5,                           // 5 seconds
	10,                          // 10 seconds
	30,                          // 30 seconds
	60,                          // 1 minute
	5 * 60,                      // 5 minutes
	10 * 60,                     // 10 minutes
	30 * 60,                     // 30 minutes
	60 * 60,                     // 1 hour
	2 * 60 * 60,                 // 2 hours
	3 * 60 * 60,                 // 3 hours
	6 * 60 * 60,                 // 6 hours
	12 * 60 * 60,                // 12 hours
	24 * 60 * 60,                // 1 day
	2 * 24 * 60 * 60,            // 2 days
	5 * 24 * 60 * 60,            // 5 days
	10 * 24 * 60 * 60,           // 10 days
	30 * 24 * 60 * 60,           // 1 month (30 days)
	6 * 30 * 24 * 60 * 60,       // 6 month
	12 * 30 * 24 * 60 * 60,      // 1 year
	2 * 12 * 30 * 24 * 60 * 60,  // 2 years
	5 * 12 * 30 * 24 * 60 * 60,  // 5 years
	10 * 12 * 30 * 24 * 60 * 60, // 10 years
	20 * 12 * 30 * 24 * 60 * 60, // 20 years
	50 * 12 * 30 * 24 * 60 * 60, // 50 years
}

// DefaultMaxBuckets is used when no bucket limit is given.
const DefaultMaxBuckets = 100

// ChooseBucketSizeForSpan returns the smallest allowed bucket size that
// covers spanSec in at most maxBuckets buckets.
func ChooseBucketSizeForSpan(spanSec int64, maxBuckets int) int {
	if maxBuckets <= 0 {
		maxBuckets = DefaultMaxBuckets
	}

	span := spanSec
	if span < 1 {
		span = 1
	}

	for _, s := range allowedBucketSizesSec {
		buckets := (span + int64(s) - 1) / int64(s)
		if buckets <= int64(maxBuckets) {
			return s
		}
	}

	// If even the largest bucket size gives too many buckets, use it anyway
	return allowedBucketSizesSec[len(allowedBucketSizesSec)-1]
}

// bucketSize picks a size for the span between startMs and endMs. Date
// cells resolve to days, so a degenerate span gets one-day buckets.
func bucketSize(startMs, endMs int64, maxBuckets int) int {
	if endMs <= startMs {
		return 24 * 60 * 60
	}
	return ChooseBucketSizeForSpan((endMs-startMs)/1000, maxBuckets)
}

package histogram

// Bucket is one time bucket and its count
type Bucket struct {
	// Start epoch milliseconds of the bucket start
	Start int64 `json:"start"`
	Count int   `json:"count"`
}

// Response is returned by Build
type Response struct {
	Column        string   `json:"column"`
	Buckets       []Bucket `json:"buckets"`
	MinTs         int64    `json:"minTs"`
	MaxTs         int64    `json:"maxTs"`
	BucketSeconds int      `json:"bucketSeconds"`
	Dated         int      `json:"dated"`   // rows whose cell parsed as a date
	Undated       int      `json:"undated"` // empty or unparseable cells
	Version       string   `json:"version"` // session:version_number
}

// Bounds clamps the histogram to a filter range, in epoch milliseconds.
// A nil side falls back to the data range.
type Bounds struct {
	Start *int64
	End   *int64
}

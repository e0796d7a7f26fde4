package histogram

import (
	"context"
	"strings"
	"time"

	"thebridge/app/interfaces"
	"thebridge/app/timestamps"
)

// Options configures Build.
type Options struct {
	MaxBuckets    int
	BucketSeconds int // 0 picks a size from the span
	Location      *time.Location
	Bounds        Bounds
}

// ColumnIndex resolves column against header, exact match first, then
// case-insensitive. It returns -1 when absent.
func ColumnIndex(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(column)) {
			return i
		}
	}
	return -1
}

// Build counts the rows of data per time bucket of column. Cells are
// parsed with the flexible date parser in opts.Location.
func Build(ctx context.Context, data *interfaces.StageResult, column string, opts Options) (*Response, error) {
	resp := &Response{Column: column, Buckets: []Bucket{}}
	if data == nil || len(data.Rows) == 0 {
		return resp, nil
	}
	idx := ColumnIndex(data.Header, column)
	if idx < 0 {
		resp.Undated = len(data.Rows)
		return resp, nil
	}

	stamps := make([]int64, 0, len(data.Rows))
	var minTs, maxTs int64
	for i, row := range data.Rows {
		// Check for cancellation every 1000 rows
		if i%1000 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if idx >= len(row.Data) {
			resp.Undated++
			continue
		}
		t, ok := timestamps.ParseFlexibleDateIn(row.Data[idx], opts.Location)
		if !ok {
			resp.Undated++
			continue
		}
		ms := t.UnixMilli()
		if len(stamps) == 0 || ms < minTs {
			minTs = ms
		}
		if len(stamps) == 0 || ms > maxTs {
			maxTs = ms
		}
		stamps = append(stamps, ms)
	}
	resp.Dated = len(stamps)
	if len(stamps) == 0 {
		return resp, nil
	}

	// Filter boundaries win over the data range
	start, end := minTs, maxTs
	if opts.Bounds.Start != nil {
		start = *opts.Bounds.Start
	}
	if opts.Bounds.End != nil {
		end = *opts.Bounds.End
	}
	if end < start {
		end = start
	}

	bucketSeconds := opts.BucketSeconds
	if bucketSeconds <= 0 {
		bucketSeconds = bucketSize(start, end, opts.MaxBuckets)
	}
	bucketMs := int64(bucketSeconds) * 1000

	counts := make(map[int64]int)
	for _, ms := range stamps {
		counts[floorDiv(ms, bucketMs)*bucketMs]++
	}

	first := floorDiv(start, bucketMs) * bucketMs
	last := floorDiv(end, bucketMs) * bucketMs
	for t := first; t <= last; t += bucketMs {
		resp.Buckets = append(resp.Buckets, Bucket{Start: t, Count: counts[t]})
	}
	resp.MinTs, resp.MaxTs = start, end
	resp.BucketSeconds = bucketSeconds
	return resp, nil
}

// floorDiv rounds toward negative infinity so pre-1970 dates bucket correctly.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

package filterstate

import (
	"context"

	"thebridge/app/filter"
	"thebridge/app/histogram"
	"thebridge/app/interfaces"
)

// Histogram buckets the visible rows by the dates in column. An active
// range filter on column sets the histogram boundaries.
func (c *Controller) Histogram(ctx context.Context, column string, maxBuckets int) (*histogram.Response, error) {
	result := c.Result()
	if result == nil {
		var err error
		if result, err = c.Recompute(ctx); err != nil {
			return nil, err
		}
	}

	env := c.planner.Env()
	opts := histogram.Options{MaxBuckets: maxBuckets, Location: env.Location}
	if f, ok := c.State().Filter(column); ok {
		if df, ok := f.(filter.DateFilter); ok && len(df.Values) == 0 {
			r := filter.ResolveRange(df, env)
			if !r.Broken && r.HasStart {
				ms := r.Start.UnixMilli()
				opts.Bounds.Start = &ms
			}
			if !r.Broken && r.HasEnd {
				ms := r.End.UnixMilli()
				opts.Bounds.End = &ms
			}
		}
	}

	resp, err := histogram.Build(ctx, &interfaces.StageResult{Header: result.Header, Rows: result.Rows}, column, opts)
	if err != nil {
		return nil, err
	}
	resp.Version = c.histograms.Next()
	return resp, nil
}

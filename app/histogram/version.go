package histogram

import (
	"fmt"
	"sync/atomic"
)

// Versioner tags histogram responses so a frontend can drop stale ones.
type Versioner struct {
	prefix  string
	counter atomic.Int64
}

// NewVersioner returns a versioner whose versions start with prefix.
func NewVersioner(prefix string) *Versioner {
	return &Versioner{prefix: prefix}
}

// Next increments the counter and returns the new version string
func (v *Versioner) Next() string {
	return fmt.Sprintf("%s:%d", v.prefix, v.counter.Add(1))
}

// Current returns the latest version string
func (v *Versioner) Current() string {
	return fmt.Sprintf("%s:%d", v.prefix, v.counter.Load())
}

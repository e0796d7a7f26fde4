package plugin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Mode is the execution mode passed to a plugin
type Mode string

const (
	ModeHeader Mode = "header" // CSV header row only
	ModeCount  Mode = "count"  // row count
	ModeStream Mode = "stream" // full CSV output
)

// Executor runs a plugin binary
type Executor struct {
	plugin *Info
}

// NewExecutor creates an executor for p
func NewExecutor(p *Info) *Executor {
	return &Executor{plugin: p}
}

// Execute runs the plugin in mode against filePath and returns its stdout
func (e *Executor) Execute(ctx context.Context, mode Mode, filePath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.plugin.ExecPath,
		fmt.Sprintf("--mode=%s", mode),
		fmt.Sprintf("--file=%s", filePath),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderrStr := strings.TrimSpace(stderr.String()); stderrStr != "" {
			return nil, fmt.Errorf("plugin %s failed: %v\nstderr: %s", e.plugin.Manifest.Name, err, stderrStr)
		}
		return nil, fmt.Errorf("plugin %s failed: %v", e.plugin.Manifest.Name, err)
	}
	return stdout.Bytes(), nil
}

// Stream returns the full CSV rendition of filePath
func (e *Executor) Stream(ctx context.Context, filePath string) ([]byte, error) {
	return e.Execute(ctx, ModeStream, filePath)
}

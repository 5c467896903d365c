package source

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// PSInspector resolves process ids to command lines via the OS process table
type PSInspector struct {
	logger *zap.Logger
}

// NewInspector creates the default process inspector
func NewInspector(logger *zap.Logger) *PSInspector {
	return &PSInspector{logger: logger}
}

// Cmdline returns the full command line of the given process
func (p *PSInspector) Cmdline(ctx context.Context, pid int32) (string, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", fmt.Errorf("process %d lookup failed: %w", pid, err)
	}
	cmdline, err := proc.CmdlineWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("process %d cmdline read failed: %w", pid, err)
	}
	return cmdline, nil
}

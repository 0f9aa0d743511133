package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// executor abstracts command execution for testing.
type executor interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return out, err
}

// CommandConfig configures a CommandProvider.
type CommandConfig struct {
	Command    string
	NumResults int
	Timeout    time.Duration
}

// CommandProvider runs a ddgr-compatible CLI that prints a JSON array of
// results on stdout.
type CommandProvider struct {
	cfg  CommandConfig
	exec executor
}

// NewCommandProvider returns a provider for cfg, defaulting to
// "ddgr --json --num 10" with a 30 second ceiling.
func NewCommandProvider(cfg CommandConfig) *CommandProvider {
	return newCommandProvider(cfg, osExecutor{})
}

func newCommandProvider(cfg CommandConfig, exec executor) *CommandProvider {
	if cfg.Command == "" {
		cfg.Command = "ddgr"
	}
	if cfg.NumResults <= 0 {
		cfg.NumResults = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CommandProvider{cfg: cfg, exec: exec}
}

func (p *CommandProvider) Name() string { return filepath.Base(p.cfg.Command) }

// Search runs the command for query. A missing binary, a timeout, a non-zero
// exit or output that is not a JSON array are all errors.
func (p *CommandProvider) Search(ctx context.Context, query string) ([]RawResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	args := []string{"--json", "--num", strconv.Itoa(p.cfg.NumResults), query}
	out, err := p.exec.Output(ctx, p.cfg.Command, args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %s", p.Name(), p.cfg.Timeout)
		}
		return nil, fmt.Errorf("running %s: %w", p.Name(), err)
	}

	var results []RawResult
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, fmt.Errorf("parsing %s output: %w", p.Name(), err)
	}
	return results, nil
}

package spotdl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/savedl/internal/models"
)

const probeTimeout = 15 * time.Second

// Detector resolves which command grammar the installed tool speaks.
type Detector interface {
	Detect(ctx context.Context) models.Dialect
}

// Strategy interprets "--version" output. ok is false when the output cannot be interpreted.
type Strategy func(version string) (d models.Dialect, ok bool)

// MatchMarker treats any version output containing marker as [models.Current].
func MatchMarker(marker string) Strategy {
	return func(version string) (models.Dialect, bool) {
		if strings.Contains(version, marker) {
			return models.Current, true
		}
		return models.Legacy, true
	}
}

var semverPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// MatchMajor parses the first dotted version number and treats a major version of at least minMajor as
// [models.Current].
func MatchMajor(minMajor int) Strategy {
	return func(version string) (models.Dialect, bool) {
		m := semverPattern.FindStringSubmatch(version)
		if m == nil {
			return models.Legacy, false
		}
		major, err := strconv.Atoi(m[1])
		if err != nil {
			return models.Legacy, false
		}
		if major >= minMajor {
			return models.Current, true
		}
		return models.Legacy, true
	}
}

// StrategyByName returns the strategy configured as "marker" (the default) or "semver".
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "marker":
		return MatchMarker("4."), nil
	case "semver":
		return MatchMajor(4), nil
	}
	return nil, fmt.Errorf("unknown detection strategy %q", name)
}

// ProbeDetector runs "<command> --version" and applies a [Strategy] to its output.
//
// Any failure falls back to [models.Legacy], whose grammar is the conservative choice.
type ProbeDetector struct {
	command  []string
	strategy Strategy
	timeout  time.Duration
	logger   *log.Logger
}

// NewProbeDetector creates a detector. A nil strategy uses the "4." marker.
func NewProbeDetector(command []string, strategy Strategy, logger *log.Logger) *ProbeDetector {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if strategy == nil {
		strategy = MatchMarker("4.")
	}
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &ProbeDetector{command: command, strategy: strategy, timeout: probeTimeout, logger: logger}
}

// Version returns the tool's cleaned "--version" output.
func (p *ProbeDetector) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string(nil), p.command[1:]...), "--version")
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to probe %s: %w", p.command[0], err)
	}
	return strings.TrimSpace(Clean(string(out))), nil
}

// Detect probes the tool once.
func (p *ProbeDetector) Detect(ctx context.Context) models.Dialect {
	version, err := p.Version(ctx)
	if err != nil {
		p.logger.Warn("could not determine spotdl version, assuming v3", "error", err)
		return models.Legacy
	}

	d, ok := p.strategy(version)
	if !ok {
		p.logger.Warn("unrecognised spotdl version, assuming v3", "version", version)
		return models.Legacy
	}
	p.logger.Debug("detected spotdl", "version", version, "dialect", d)
	return d
}

// Static is a [Detector] that always reports the same dialect.
type Static models.Dialect

func (s Static) Detect(context.Context) models.Dialect {
	return models.Dialect(s)
}

package spotdl

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/shared"
)

// DefaultCommand runs spotdl from PATH.
var DefaultCommand = []string{"spotdl"}

// BuildCommand returns the executable and arguments that download item with cfg.
//
// command is the launcher prefix, e.g. ["spotdl"] or ["python3", "-m", "spotdl"]. The result depends only on its inputs.
func BuildCommand(command []string, item models.WorkItem, cfg models.BatchConfig) (string, []string) {
	if len(command) == 0 {
		command = DefaultCommand
	}
	args := append([]string(nil), command[1:]...)

	switch cfg.Dialect {
	case models.Current:
		output := filepath.Join(cfg.OutputDir, cfg.PathTemplate()+".{output-ext}")
		args = append(args, "download", item.URL, "--output", output, "--format", cfg.Format)
	default:
		args = append(args,
			item.URL,
			"--output", cfg.OutputDir,
			"--output-format", cfg.Format,
			"--path-template", cfg.PathTemplate()+".{ext}",
		)
	}
	return command[0], args
}

// LookPath resolves the launcher executable, wrapping failures in [shared.ErrToolNotFound].
func LookPath(command []string) (string, error) {
	if len(command) == 0 {
		command = DefaultCommand
	}
	path, err := exec.LookPath(command[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrToolNotFound, err)
	}
	return path, nil
}

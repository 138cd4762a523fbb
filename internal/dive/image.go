package dive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Returns the configuration recorded in an image, pulling it first if it is
// not present locally.
//
// The entrypoint and default command from the returned config are used to
// emulate docker's normal startup sequence, since the real entrypoint slot
// is occupied by caisson-init.
func inspectImage(ctx context.Context, image string) (*ocispec.ImageConfig, error) {
	cfg, err := runInspect(ctx, image)
	if err == nil {
		return cfg, nil
	}

	slog.Debug("image not available locally, pulling", "image", image)
	if err := pullImage(ctx, image); err != nil {
		return nil, err
	}

	return runInspect(ctx, image)
}

// Runs docker inspect and decodes the image configuration.
func runInspect(ctx context.Context, image string) (*ocispec.ImageConfig, error) {
	out, err := exec.CommandContext(ctx, "docker", "inspect", "--type=image", image).Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%w: no such image: %s", ErrDive, image)
		}
		return nil, fmt.Errorf("%w: %v", ErrDocker, err)
	}

	var records []struct {
		Config ocispec.ImageConfig `json:"Config"`
	}
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding docker inspect output: %v", ErrDive, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no such image: %s", ErrDive, image)
	}

	return &records[0].Config, nil
}

// Pulls an image, streaming docker's progress output to stderr.
func pullImage(ctx context.Context, image string) error {
	cmd := exec.CommandContext(ctx, "docker", "pull", image)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%w: unable to pull image %s", ErrDive, image)
		}
		return fmt.Errorf("%w: %v", ErrDocker, err)
	}
	return nil
}

package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"
)

// Provisioner produces snapshot identifiers. The template is an opaque hint
// passed through to the provisioning backend.
type Provisioner interface {
	Provision(ctx context.Context, template string) (string, error)
}

// HookProvisioner shells out to an operator-supplied executable. The hook
// receives the lifecycle event and template via environment variables and
// must print exactly one snapshot identifier on stdout.
type HookProvisioner struct {
	Command string
}

func (h *HookProvisioner) Provision(ctx context.Context, template string) (string, error) {
	cmd := exec.CommandContext(ctx, h.Command)
	cmd.Env = append(cmd.Environ(), "CLOUDTASK_SNAPSHOT_EVENT=prewarm")
	if template != "" {
		cmd.Env = append(cmd.Env, "CLOUDTASK_SNAPSHOT_TEMPLATE="+template)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("prewarm hook %s: %w: %s", h.Command, err, stderr.String())
		}
		return "", fmt.Errorf("prewarm hook %s: %w", h.Command, err)
	}

	id := strings.TrimSpace(stdout.String())
	if id == "" {
		return "", fmt.Errorf("prewarm hook %s must emit a snapshot identifier on stdout", h.Command)
	}
	return id, nil
}

// syntheticProvisioner mints placeholder ids when no hook is configured.
type syntheticProvisioner struct{}

func (syntheticProvisioner) Provision(context.Context, string) (string, error) {
	return "snapshot-" + uuid.NewString(), nil
}

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/primary"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

const (
	MB int64 = 1024 * 1024

	containerWorkdir = "/sandbox"
	removeTimeout    = 10 * time.Second
)

// dockerAPI is the part of the Docker client the sandbox needs
type dockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
}

var (
	_ secondary.Sandbox = (*DockerSandbox)(nil)
	_ dockerAPI         = (*client.Client)(nil)
)

// DockerSandbox runs every program in a throwaway container with no network,
// the workspace mounted read-only and cgroup limits on memory, CPU and pids.
type DockerSandbox struct {
	cli    dockerAPI
	cfg    *config.SandboxConfig
	logger primary.Logger
	pullMu sync.Mutex
}

// NewDockerClient connects to the daemon from the environment and checks it answers
func NewDockerClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSandboxUnavailable, err)
	}
	return cli, nil
}

func NewDockerSandbox(cli dockerAPI, cfg *config.SandboxConfig, logger primary.Logger) *DockerSandbox {
	return &DockerSandbox{
		cli:    cli,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *DockerSandbox) Name() string {
	return config.SandboxDocker
}

func (s *DockerSandbox) Run(ctx context.Context, prog *secondary.Program) (*secondary.RunOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if prog.Runtime.Image == "" {
		return nil, fmt.Errorf("%w: no image configured for %s", errs.ErrSandboxUnavailable, prog.Runtime.DisplayName)
	}

	// the container user must be able to read the mount
	ws, err := newWorkspace(s.cfg.TempDir, prog.Files, 0o755, 0o644, s.logger)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	id, err := s.create(ctx, prog, ws.dir)
	if err != nil {
		return nil, err
	}
	defer s.remove(id)

	start := time.Now()
	if err := s.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to start container: %v", errs.ErrSandboxUnavailable, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, prog.Timeout)
	defer cancel()

	statusCh, errCh := s.cli.ContainerWait(waitCtx, id, container.WaitConditionNotRunning)
	outcome := &secondary.RunOutcome{}

	select {
	case status := <-statusCh:
		outcome.Elapsed = time.Since(start)
		if status.Error != nil {
			return nil, fmt.Errorf("%w: %s", errs.ErrSandboxUnavailable, status.Error.Message)
		}
		outcome.ExitCode = int(status.StatusCode)
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			// the deferred forced removal kills the container
			outcome.TimedOut = true
			outcome.ExitCode = -1
			outcome.Elapsed = prog.Timeout
			return outcome, nil
		}
		return nil, fmt.Errorf("%w: failed to wait for container: %v", errs.ErrSandboxUnavailable, err)
	}

	stdout := newCappedBuffer(s.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(s.cfg.MaxOutputBytes)
	logs, err := s.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read container logs: %v", errs.ErrSandboxUnavailable, err)
	}
	defer logs.Close()
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		return nil, fmt.Errorf("%w: failed to demultiplex container logs: %v", errs.ErrSandboxUnavailable, err)
	}

	outcome.Stdout = stdout.Bytes()
	outcome.Stderr = stderr.Bytes()
	return outcome, nil
}

func (s *DockerSandbox) create(ctx context.Context, prog *secondary.Program, dir string) (string, error) {
	pids := s.cfg.PidsLimit
	cfg := &container.Config{
		Image:           prog.Runtime.Image,
		Cmd:             prog.Runtime.Command(path.Join(containerWorkdir, prog.Entry)),
		WorkingDir:      containerWorkdir,
		Env:             append([]string{"HOME=/tmp", "LANG=C.UTF-8"}, prog.Runtime.Env...),
		User:            "nobody",
		NetworkDisabled: true,
	}
	hostCfg := &container.HostConfig{
		Binds:       []string{dir + ":" + containerWorkdir + ":ro"},
		NetworkMode: "none",
		Tmpfs:       map[string]string{"/tmp": "rw,size=16m"},
		Resources: container.Resources{
			Memory:    s.cfg.MemoryLimitMB * MB,
			NanoCPUs:  s.cfg.NanoCPUs,
			PidsLimit: &pids,
		},
	}

	resp, err := s.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil && cerrdefs.IsNotFound(err) {
		if pullErr := s.pull(ctx, prog.Runtime.Image); pullErr != nil {
			return "", pullErr
		}
		resp, err = s.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Error("Failed to create container", "image", prog.Runtime.Image, "error", err)
		return "", fmt.Errorf("%w: failed to create container: %v", errs.ErrSandboxUnavailable, err)
	}
	return resp.ID, nil
}

func (s *DockerSandbox) pull(ctx context.Context, name string) error {
	s.pullMu.Lock()
	defer s.pullMu.Unlock()

	s.logger.Info("Pulling image", "image", name)
	reader, err := s.cli.ImagePull(ctx, name, image.PullOptions{})
	if err != nil {
		s.logger.Error("Failed to pull image", "image", name, "error", err)
		return fmt.Errorf("%w: failed to pull image %s: %v", errs.ErrSandboxUnavailable, name, err)
	}
	defer reader.Close()

	// the pull only completes once the progress stream is drained
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("%w: failed to pull image %s: %v", errs.ErrSandboxUnavailable, name, err)
	}
	return nil
}

func (s *DockerSandbox) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()

	if err := s.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		s.logger.Error("Failed to remove container", "containerId", id, "error", err)
	}
}

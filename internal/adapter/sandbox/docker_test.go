package sandbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"gitlab.com/fcv-grader.net/internal/adapter/logging"
	"gitlab.com/fcv-grader.net/internal/config"
	"gitlab.com/fcv-grader.net/internal/core/ports/secondary"
	"gitlab.com/fcv-grader.net/internal/domain"
	"gitlab.com/fcv-grader.net/internal/static/errs"
)

type fakeDocker struct {
	missingImage bool
	pulled       []string
	created      *container.Config
	hostCfg      *container.HostConfig
	mountedFiles map[string]string
	removed      []string
	exitCode     int64
	hang         bool
	stdout       string
	stderr       string
}

func (f *fakeDocker) ContainerCreate(_ context.Context, cfg *container.Config, hostCfg *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	if f.missingImage {
		return container.CreateResponse{}, cerrdefs.ErrNotFound
	}
	f.created = cfg
	f.hostCfg = hostCfg

	// capture what the container would see through the bind mount
	f.mountedFiles = make(map[string]string)
	hostDir := strings.SplitN(hostCfg.Binds[0], ":", 2)[0]
	entries, _ := os.ReadDir(hostDir)
	for _, e := range entries {
		data, _ := os.ReadFile(hostDir + "/" + e.Name())
		f.mountedFiles[e.Name()] = string(data)
	}
	return container.CreateResponse{ID: "c1"}, nil
}

func (f *fakeDocker) ContainerStart(context.Context, string, container.StartOptions) error {
	return nil
}

func (f *fakeDocker) ContainerWait(ctx context.Context, _ string, _ container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	errCh := make(chan error, 1)
	if f.hang {
		go func() {
			<-ctx.Done()
			errCh <- ctx.Err()
		}()
		return statusCh, errCh
	}
	statusCh <- container.WaitResponse{StatusCode: f.exitCode}
	return statusCh, errCh
}

func (f *fakeDocker) ContainerLogs(context.Context, string, container.LogsOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(f.stdout))
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(f.stderr))
	return io.NopCloser(&buf), nil
}

func (f *fakeDocker) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeDocker) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, ref)
	f.missingImage = false
	return io.NopCloser(strings.NewReader(`{"status":"done"}`)), nil
}

func newTestDockerSandbox(t *testing.T, fake *fakeDocker) (*DockerSandbox, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.SandboxConfig{
		Kind:           config.SandboxDocker,
		TempDir:        dir,
		MaxOutputBytes: 1024,
		MemoryLimitMB:  128,
		NanoCPUs:       500_000_000,
		PidsLimit:      32,
	}
	return NewDockerSandbox(fake, cfg, logging.NewNopLogger()), dir
}

func pythonProgram(timeout time.Duration) *secondary.Program {
	return &secondary.Program{
		Runtime: domain.DefaultRuntimeProfiles()[domain.LanguagePython],
		Files: []secondary.File{
			{Name: "harness.py", Content: []byte("print(1)")},
			{Name: "solution.py", Content: []byte("def f(): pass")},
		},
		Entry:   "harness.py",
		Timeout: timeout,
	}
}

func TestDockerSandboxRunsContainer(t *testing.T) {
	fake := &fakeDocker{exitCode: 1, stdout: "hello", stderr: "boom"}
	sb, dir := newTestDockerSandbox(t, fake)

	out, err := sb.Run(context.Background(), pythonProgram(5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ExitCode != 1 || string(out.Stdout) != "hello" || string(out.Stderr) != "boom" {
		t.Errorf("unexpected outcome %+v", out)
	}

	if got := strings.Join(fake.created.Cmd, " "); got != "python3 -B /sandbox/harness.py" {
		t.Errorf("unexpected command %q", got)
	}
	if !fake.created.NetworkDisabled || fake.hostCfg.NetworkMode != "none" {
		t.Error("container must run without network")
	}
	if !strings.HasSuffix(fake.hostCfg.Binds[0], ":/sandbox:ro") {
		t.Errorf("workspace must be mounted read-only, got %s", fake.hostCfg.Binds[0])
	}
	if fake.hostCfg.Resources.Memory != 128*MB || *fake.hostCfg.Resources.PidsLimit != 32 {
		t.Errorf("unexpected resources %+v", fake.hostCfg.Resources)
	}
	if fake.mountedFiles["solution.py"] != "def f(): pass" {
		t.Errorf("solution not visible in mount: %v", fake.mountedFiles)
	}
	if len(fake.removed) != 1 {
		t.Errorf("container should be removed once, removed %v", fake.removed)
	}
	assertWorkspaceRemoved(t, dir)
}

func TestDockerSandboxPullsMissingImage(t *testing.T) {
	fake := &fakeDocker{missingImage: true}
	sb, _ := newTestDockerSandbox(t, fake)

	if _, err := sb.Run(context.Background(), pythonProgram(5*time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.pulled) != 1 || fake.pulled[0] != "python:3.12-alpine" {
		t.Errorf("expected image pull, got %v", fake.pulled)
	}
}

func TestDockerSandboxTimeout(t *testing.T) {
	fake := &fakeDocker{hang: true}
	sb, dir := newTestDockerSandbox(t, fake)
	timeout := 100 * time.Millisecond

	out, err := sb.Run(context.Background(), pythonProgram(timeout))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.TimedOut || out.Elapsed != timeout {
		t.Errorf("unexpected outcome %+v", out)
	}
	if len(fake.removed) != 1 {
		t.Error("timed out container should be force removed")
	}
	assertWorkspaceRemoved(t, dir)
}

func TestDockerSandboxCancellation(t *testing.T) {
	fake := &fakeDocker{hang: true}
	sb, _ := newTestDockerSandbox(t, fake)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := sb.Run(ctx, pythonProgram(10*time.Second))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDockerSandboxRequiresImage(t *testing.T) {
	sb, _ := newTestDockerSandbox(t, &fakeDocker{})
	prog := pythonProgram(time.Second)
	prog.Runtime = &domain.RuntimeProfile{DisplayName: "Python", Binary: "python3"}

	_, err := sb.Run(context.Background(), prog)
	if !errors.Is(err, errs.ErrSandboxUnavailable) {
		t.Fatalf("expected ErrSandboxUnavailable, got %v", err)
	}
}

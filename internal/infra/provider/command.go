package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

// DefaultExtractorArgs asks yt-dlp to print url, title, duration and filename, one per line.
var DefaultExtractorArgs = []string{
	"-m", "yt_dlp",
	"--get-url", "--get-title", "--get-duration", "--get-filename",
	"--no-warnings", "--no-playlist",
	"-f", "best[ext=mp4]/best",
}

const defaultFilename = "download.mp4"

type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// CommandAdapter runs a local extractor process for each attempt.
type CommandAdapter struct {
	*Base
	command string
	args    []string
	run     runFunc
}

// NewCommandAdapter creates an adapter that executes command with args followed by the raw input.
// A nil args slice uses DefaultExtractorArgs.
func NewCommandAdapter(tag, command string, args []string, platforms []domain.Category) *CommandAdapter {
	if command == "" {
		command = "python3"
	}
	if args == nil {
		args = DefaultExtractorArgs
	}
	return &CommandAdapter{
		Base:    NewBase(tag, platforms),
		command: command,
		args:    args,
		run:     runProcess,
	}
}

func runProcess(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Attempt implements Adapter.
func (a *CommandAdapter) Attempt(ctx context.Context, req domain.Request, timeout time.Duration) domain.AdapterResult {
	if res, ok := a.precheck(req); !ok {
		return res
	}
	if strings.HasPrefix(strings.TrimSpace(req.RawInput), "-") {
		return domain.Failed(domain.ReasonInputRejected, "input looks like a command line flag")
	}

	timeout = a.clampTimeout(timeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	args := append(append([]string{}, a.args...), req.RawInput)
	stdout, stderr, err := a.run(ctx, a.command, args...)
	res := a.parse(ctx, stdout, stderr, err)
	a.record(res, time.Since(start))
	return res
}

func (a *CommandAdapter) parse(ctx context.Context, stdout, stderr []byte, err error) domain.AdapterResult {
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Failed(domain.ReasonTimeout, "extractor timed out")
		}
		msg := strings.TrimSpace(string(stderr))
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Binary missing or not executable: this host cannot serve any request.
			return domain.Failed(domain.ReasonTransient, fmt.Sprintf("run extractor: %v", err))
		}
		if msg == "" {
			msg = err.Error()
		}
		return domain.Failed(ClassifyMessage(msg, domain.ReasonNoArtifactFound), truncate(msg, 300))
	}

	s := domain.Success{
		MethodTag:   "local_extractor",
		ProviderTag: a.Tag(),
		Filename:    defaultFilename,
	}
	titled := false
	for _, l := range strings.Split(string(stdout), "\n") {
		l = strings.TrimSpace(l)
		switch {
		case l == "" || isDuration(l):
		case strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://"):
			if s.ArtifactRef == "" {
				s.ArtifactRef = l
			}
		case !titled:
			s.Title = l
			titled = true
		default:
			s.Filename = l
		}
	}
	if s.ArtifactRef == "" {
		return domain.Failed(domain.ReasonNoArtifactFound, "extractor printed no url")
	}
	return domain.Succeeded(s)
}

// isDuration matches yt-dlp duration output such as "42", "3:05" or "1:02:03".
func isDuration(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != ':' {
			return false
		}
	}
	return true
}

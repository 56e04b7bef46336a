// Package transform shrinks uploaded media before encryption: PDFs get a
// lossy raster pass or a lossless optimize, videos get a 720p transcode.
// Every path is failure-tolerant and falls back to the original file.
package transform

import (
	"context"
	"fmt"
	"os/exec"

	execute "github.com/alexellis/go-execute/v2"
)

// Runner executes an external tool. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, command string, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, command string, args ...string) (string, string, error) {
	task := execute.ExecTask{
		Command:     command,
		Args:        args,
		StreamStdio: false,
	}
	res, err := task.Execute(ctx)
	if err != nil {
		return res.Stdout, res.Stderr, err
	}
	if res.ExitCode != 0 {
		return res.Stdout, res.Stderr, fmt.Errorf("%s exited %d: %s", command, res.ExitCode, res.Stderr)
	}
	return res.Stdout, res.Stderr, nil
}

// toolAvailable reports whether the named binary is on PATH.
func toolAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

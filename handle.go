//go:build unix

package buildinfo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// OSProcess is the production ProcessHandle: a child process started
// through os/exec whose stdout and stderr are plain OS pipes. The
// non-blocking reads flip the read end into O_NONBLOCK mode, the same way
// the scheduler would otherwise have to dedicate a thread per stream.
//
// OSProcess is not safe for concurrent use; the scheduling loop is its
// single caller by design.
type OSProcess struct {
	cmd    *exec.Cmd
	stdout *pipeReader
	stderr *pipeReader

	done    chan struct{}
	waitErr error
}

// StartProcess launches name with args and returns its handle. The
// write ends of the output pipes are closed in the parent once the child
// holds them, so a drain sees EOF as soon as the child exits and the
// pipes empty. The context is wired through exec.CommandContext: cancel
// it and the child is killed.
func StartProcess(ctx context.Context, name string, args ...string) (*OSProcess, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return startCommand(cmd)
}

// StartCommand starts a caller-prepared command (custom Dir, Env, extra
// files) and returns its handle. Stdout and Stderr must be unset; the
// handle owns both streams.
func StartCommand(cmd *exec.Cmd) (*OSProcess, error) {
	if cmd.Stdout != nil || cmd.Stderr != nil {
		return nil, errors.New("buildinfo: command stdout/stderr already set")
	}
	return startCommand(cmd)
}

func startCommand(cmd *exec.Cmd) (*OSProcess, error) {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, err
	}

	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, err
	}

	// The child holds its copies now; keeping ours open would delay EOF
	// forever.
	stdoutW.Close()
	stderrW.Close()

	p := &OSProcess{
		cmd:    cmd,
		stdout: newPipeReader(stdoutR),
		stderr: newPipeReader(stderrR),
		done:   make(chan struct{}),
	}

	// Reap in the background so Poll stays non-blocking. Only waitErr is
	// written before done closes; everything else stays with the caller.
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

// TryReadStdout implements ProcessHandle.
func (p *OSProcess) TryReadStdout() ([]byte, error) { return p.stdout.tryRead() }

// TryReadStderr implements ProcessHandle.
func (p *OSProcess) TryReadStderr() ([]byte, error) { return p.stderr.tryRead() }

// DrainStdout implements ProcessHandle.
func (p *OSProcess) DrainStdout() ([]byte, error) { return p.stdout.drain() }

// DrainStderr implements ProcessHandle.
func (p *OSProcess) DrainStderr() ([]byte, error) { return p.stderr.drain() }

// Poll implements ProcessHandle.
func (p *OSProcess) Poll() (bool, error) {
	select {
	case <-p.done:
		return true, p.waitFailure()
	default:
		return false, nil
	}
}

// Wait implements ProcessHandle.
func (p *OSProcess) Wait() error {
	<-p.done
	return p.waitFailure()
}

// waitFailure filters exec.ExitError out of the wait result: a non-zero
// exit is data, not an error.
func (p *OSProcess) waitFailure() error {
	var exitErr *exec.ExitError
	if p.waitErr == nil || errors.As(p.waitErr, &exitErr) {
		return nil
	}
	return p.waitErr
}

// ExitStatus implements ProcessHandle. A process killed by a signal
// reports 128 plus the signal number, shell convention.
func (p *OSProcess) ExitStatus() int {
	select {
	case <-p.done:
	default:
		return -1
	}

	state := p.cmd.ProcessState
	if state == nil {
		return -1
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return -1
}

// Kill implements ProcessHandle.
func (p *OSProcess) Kill() error {
	if p.cmd.Process == nil {
		return errors.New("buildinfo: process not started")
	}
	return p.cmd.Process.Kill()
}

// pipeReader reads one pipe's read end, switching between blocking and
// non-blocking mode on the raw file descriptor.
type pipeReader struct {
	// f keeps the descriptor alive; reads go through the raw fd so the
	// runtime poller never re-arms it behind our back.
	f      *os.File
	fd     int
	closed bool
}

func newPipeReader(f *os.File) *pipeReader {
	return &pipeReader{f: f, fd: int(f.Fd())}
}

// tryRead collects everything currently buffered without blocking.
// Nothing ready yields (nil, nil).
func (r *pipeReader) tryRead() ([]byte, error) {
	if r.closed {
		return nil, nil
	}
	if err := syscall.SetNonblock(r.fd, true); err != nil {
		return nil, err
	}

	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := syscall.Read(r.fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
			continue
		}
		switch {
		case err == nil:
			// EOF: the child exited and the pipe emptied.
			r.close()
			return out, nil
		case errors.Is(err, syscall.EINTR):
			continue
		case errors.Is(err, syscall.EAGAIN):
			return out, nil
		default:
			return out, err
		}
	}
}

// drain blocks until the stream closes and returns everything left.
func (r *pipeReader) drain() ([]byte, error) {
	if r.closed {
		return nil, nil
	}
	if err := syscall.SetNonblock(r.fd, false); err != nil {
		return nil, err
	}

	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := syscall.Read(r.fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
			continue
		}
		switch {
		case err == nil:
			r.close()
			return out, nil
		case errors.Is(err, syscall.EINTR):
			continue
		default:
			return out, err
		}
	}
}

func (r *pipeReader) close() {
	r.closed = true
	r.f.Close()
}

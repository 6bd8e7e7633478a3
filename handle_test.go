//go:build unix

package buildinfo

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSProcessDrainCapturesBothStreams(t *testing.T) {
	p, err := StartProcess(context.Background(), "sh", "-c",
		"echo out-line; echo err-line >&2")
	require.NoError(t, err)

	require.NoError(t, p.Wait())

	stdout, err := p.DrainStdout()
	require.NoError(t, err)
	stderr, err := p.DrainStderr()
	require.NoError(t, err)

	assert.Equal(t, "out-line\n", string(stdout))
	assert.Equal(t, "err-line\n", string(stderr))
	assert.Equal(t, 0, p.ExitStatus())
}

func TestOSProcessNonZeroExitIsDataNotError(t *testing.T) {
	p, err := StartProcess(context.Background(), "sh", "-c", "exit 3")
	require.NoError(t, err)

	require.NoError(t, p.Wait(), "a non-zero exit must not surface as a wait error")
	assert.Equal(t, 3, p.ExitStatus())
}

func TestOSProcessTryReadIdleReturnsNothing(t *testing.T) {
	p, err := StartProcess(context.Background(), "sh", "-c",
		"sleep 0.3; echo late")
	require.NoError(t, err)
	defer p.Wait()

	// The child is still sleeping: nothing buffered, no block, no error.
	chunk, err := p.TryReadStdout()
	require.NoError(t, err)
	assert.Empty(t, chunk)

	done, err := p.Poll()
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, p.Wait())
	out, err := p.DrainStdout()
	require.NoError(t, err)
	assert.Equal(t, "late\n", string(out))
}

func TestOSProcessPollReportsExit(t *testing.T) {
	p, err := StartProcess(context.Background(), "true")
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for {
		done, err := p.Poll()
		require.NoError(t, err)
		if done {
			break
		}
		require.True(t, time.Now().Before(deadline), "process never reported exit")
		time.Sleep(time.Millisecond)
	}

	assert.Equal(t, 0, p.ExitStatus())
}

func TestOSProcessExitStatusBeforeExit(t *testing.T) {
	p, err := StartProcess(context.Background(), "sh", "-c", "sleep 5")
	require.NoError(t, err)

	assert.Equal(t, -1, p.ExitStatus(), "status is undefined while running")

	require.NoError(t, p.Kill())
	p.Wait()
	assert.Equal(t, 128+9, p.ExitStatus(), "SIGKILL maps to the shell convention")
}

func TestOSProcessInterleavedTryReads(t *testing.T) {
	p, err := StartProcess(context.Background(), "sh", "-c",
		"printf one; sleep 0.2; printf two")
	require.NoError(t, err)

	var collected []byte
	deadline := time.Now().Add(5 * time.Second)
	for {
		chunk, err := p.TryReadStdout()
		require.NoError(t, err)
		collected = append(collected, chunk...)

		done, err := p.Poll()
		require.NoError(t, err)
		if done {
			break
		}
		require.True(t, time.Now().Before(deadline), "process never exited")
		time.Sleep(5 * time.Millisecond)
	}

	rest, err := p.DrainStdout()
	require.NoError(t, err)
	collected = append(collected, rest...)

	assert.Equal(t, "onetwo", string(collected))
}

func TestSequentialLargeStderrWrite(t *testing.T) {
	// 256KiB to stderr exceeds any pipe buffer: the child blocks writing
	// it until the scheduler reads, so stdout only closes if both streams
	// are being drained at once.
	job := Job{
		Name: "noisy",
		Start: func(ctx context.Context) (ProcessHandle, error) {
			return StartProcess(ctx, "sh", "-c",
				"dd if=/dev/zero bs=1024 count=256 2>/dev/null | tr '\\0' 'e' >&2; printf done")
		},
	}

	outcomes, err := QueueProcesses(context.Background(), []Job{job},
		&ScheduleOptions{Limit: 1, PollInterval: time.Millisecond})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.Equal(t, "done", string(outcomes[0].Stdout))
	assert.Len(t, outcomes[0].Stderr, 256*1024)
	assert.Equal(t, 0, outcomes[0].Status())
}

func TestStartCommandRejectsPresetStreams(t *testing.T) {
	cmd := exec.Command("true")
	cmd.Stdout = &discardWriter{}

	_, err := StartCommand(cmd)
	require.Error(t, err)
}

func TestStartCommandRunsInDir(t *testing.T) {
	dir := t.TempDir()
	cmd := exec.Command("pwd")
	cmd.Dir = dir

	p, err := StartCommand(cmd)
	require.NoError(t, err)
	require.NoError(t, p.Wait())

	out, err := p.DrainStdout()
	require.NoError(t, err)
	assert.Contains(t, string(out), dir)
}

func TestStartProcessMissingBinary(t *testing.T) {
	_, err := StartProcess(context.Background(), "definitely-not-a-real-tool-xyzzy")
	require.Error(t, err)
}

func TestSchedulerWithRealProcesses(t *testing.T) {
	jobs := []Job{
		{Name: "a", Start: func(ctx context.Context) (ProcessHandle, error) {
			return StartProcess(ctx, "sh", "-c", "printf alpha")
		}},
		{Name: "b", Start: func(ctx context.Context) (ProcessHandle, error) {
			return StartProcess(ctx, "sh", "-c", "printf beta >&2; exit 1")
		}},
		{Name: "c", Start: func(ctx context.Context) (ProcessHandle, error) {
			return StartProcess(ctx, "sh", "-c", "printf gamma")
		}},
	}

	outcomes, err := QueueProcesses(context.Background(), jobs, &ScheduleOptions{
		Limit:        2,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	byName := map[string]*JobOutcome{}
	for i := range outcomes {
		byName[outcomes[i].Job.Name] = &outcomes[i]
	}

	assert.Equal(t, "alpha", string(byName["a"].Stdout))
	assert.Equal(t, 0, byName["a"].Status())
	assert.Equal(t, "beta", string(byName["b"].Stderr))
	assert.Equal(t, 1, byName["b"].Status())
	assert.Equal(t, "gamma", string(byName["c"].Stdout))
	assert.Equal(t, 0, byName["c"].Status())
}

type discardWriter struct{}

func (*discardWriter) Write(p []byte) (int, error) { return len(p), nil }

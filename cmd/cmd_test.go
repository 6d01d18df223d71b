package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldapbench/internal/runner"
)

// execute runs the root command. Flag values persist between calls, so
// every test sets the flags it depends on.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTestCommand_Short(t *testing.T) {
	out, err := execute(t, "test", "--profile", "fixed", "--latency", "0s",
		"-c", "2", "-n", "4", "-q", "--short", "--output", "text")
	require.NoError(t, err)

	fields := strings.Fields(out)
	require.Len(t, fields, 3, out)
	assert.Equal(t, "2", fields[0])
	assert.Equal(t, "100%", fields[2])
}

func TestTestCommand_JSON(t *testing.T) {
	out, err := execute(t, "test", "--profile", "error", "--latency", "0s",
		"-c", "3", "-n", "30", "-q=false", "--short=false", "--output", "json")
	require.NoError(t, err)

	var got struct {
		Concurrency int    `json:"concurrency"`
		Attempted   uint64 `json:"attempted"`
		Success     uint64 `json:"success"`
		Failed      uint64 `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, 3, got.Concurrency)
	assert.Equal(t, uint64(30), got.Attempted)
	assert.Equal(t, got.Attempted, got.Success+got.Failed)
}

func TestCommand_Errors(t *testing.T) {
	_, err := execute(t, "search")
	assert.ErrorContains(t, err, "accepts 1 arg(s)")

	_, err = execute(t, "test", "-c", "0", "-n", "1", "--output", "text")
	assert.ErrorIs(t, err, runner.ErrInvalidConfig)

	_, err = execute(t, "test", "-c", "1", "--profile", "nope")
	assert.ErrorContains(t, err, `unknown profile "nope"`)

	_, err = execute(t, "search", "ldap://127.0.0.1:1", "-c", "1", "--scope", "deep")
	assert.ErrorContains(t, err, "unknown search scope")
}

func TestBenchConfig(t *testing.T) {
	_, err := execute(t, "test", "-c", "4", "-n", "9", "-D", "cn=admin,dc=test", "-b", "dc=test",
		"--profile", "fixed", "--latency", "0s", "-q", "--short")
	require.NoError(t, err)

	cfg, err := benchConfig("ldap://localhost")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 9, cfg.Total)
	assert.Equal(t, "cn=admin,dc=test", cfg.BindDN)
	assert.Equal(t, "dc=test", cfg.BaseDN)
	assert.Equal(t, "ldap://localhost", cfg.URL)
	assert.Equal(t, runner.DefaultConfig().Histogram, cfg.Histogram)
}

func TestInterruptContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := interruptContext(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with its parent")
	}
}

// A run in its timed phase ignores the first interrupt but dies on the second.
func TestSecondInterruptTerminates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs POSIX signals")
	}
	if os.Getenv("LDAPBENCH_INTERRUPT_CHILD") == "1" {
		rootCmd.SetArgs([]string{"test", "-c", "1", "-n", "20", "--profile", "fixed",
			"--latency", "500ms", "-q", "--short"})
		Execute()
		return
	}

	child := exec.Command(os.Args[0], "-test.run=^TestSecondInterruptTerminates$")
	child.Env = append(os.Environ(), "LDAPBENCH_INTERRUPT_CHILD=1")
	require.NoError(t, child.Start())
	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	time.Sleep(time.Second)
	require.NoError(t, child.Process.Signal(os.Interrupt))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, child.Process.Signal(os.Interrupt))

	select {
	case err := <-done:
		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.False(t, exitErr.Success())
	case <-time.After(5 * time.Second):
		child.Process.Kill()
		t.Fatal("still running after two interrupts")
	}
}

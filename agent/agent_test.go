package agent

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	internalnet "github.com/pwshd/pwshd/internal/net"
	"github.com/pwshd/pwshd/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingExecutor struct {
	result string

	calls       int
	lastCode    string
	lastTimeout int
}

func (e *recordingExecutor) Execute(ctx context.Context, code string, timeoutSecs int) string {
	e.calls++
	e.lastCode = code
	e.lastTimeout = timeoutSecs
	return e.result
}

func startTestAgent(t *testing.T, executor Executor, opts ...Option) (*Client, int) {
	t.Helper()

	port, err := internalnet.EphemeralTCPPort()
	require.NoError(t, err)

	opts = append([]Option{WithListenAddr(fmt.Sprintf("127.0.0.1:%d", port))}, opts...)
	a, err := New(executor, opts...)
	require.NoError(t, err)

	go a.Run()
	t.Cleanup(func() {
		require.NoError(t, a.Stop())
	})

	client := NewClient(zaptest.NewLogger(t).Sugar(), "127.0.0.1", port)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, client.WaitForServer(ctx))

	return client, port
}

func TestHealth(t *testing.T) {
	client, _ := startTestAgent(t, &recordingExecutor{}, WithShellVariant("pwsh"))

	resp, err := client.Health(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "pwsh", resp.ShellVariant)
}

func TestToolDiscovery(t *testing.T) {
	client, _ := startTestAgent(t, &recordingExecutor{})

	tools, err := client.Tools(context.Background())
	require.NoError(t, err)

	require.Len(t, tools, 1)
	assert.Equal(t, RunPowerShellTool, tools[0].Name)
	assert.NotEmpty(t, tools[0].Description)
	assert.Contains(t, string(tools[0].Parameters), `"code"`)
}

func TestRunPowerShellRoundTrip(t *testing.T) {
	executor := &recordingExecutor{result: "hello"}
	client, _ := startTestAgent(t, executor)

	timeout := 30
	resp, err := client.RunPowerShell(context.Background(), RunPowerShellRequest{
		Code:    "Write-Output 'hello'",
		Timeout: &timeout,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Result)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, "Write-Output 'hello'", executor.lastCode)
	assert.Equal(t, 30, executor.lastTimeout)
}

func TestRunPowerShellDefaultTimeout(t *testing.T) {
	executor := &recordingExecutor{result: ""}
	client, _ := startTestAgent(t, executor)

	_, err := client.RunPowerShell(context.Background(), RunPowerShellRequest{Code: "Get-Date"})
	require.NoError(t, err)

	assert.Equal(t, shell.DefaultTimeoutSeconds, executor.lastTimeout)
}

func TestRunPowerShellZeroTimeoutPassesThrough(t *testing.T) {
	executor := &recordingExecutor{result: ""}
	client, _ := startTestAgent(t, executor)

	timeout := 0
	_, err := client.RunPowerShell(context.Background(), RunPowerShellRequest{
		Code:    "Get-Date",
		Timeout: &timeout,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, executor.lastTimeout)
}

func TestRunPowerShellErrorResultStaysHTTP200(t *testing.T) {
	executor := &recordingExecutor{result: "Error: Empty command provided"}
	client, _ := startTestAgent(t, executor)

	resp, err := client.RunPowerShell(context.Background(), RunPowerShellRequest{Code: ""})
	require.NoError(t, err)

	assert.Equal(t, "Error: Empty command provided", resp.Result)
}

func TestRunPowerShellMalformedBody(t *testing.T) {
	executor := &recordingExecutor{}
	client, port := startTestAgent(t, executor, WithShellVariant("pwsh"))

	// Send raw invalid JSON past the typed client.
	u := fmt.Sprintf("http://127.0.0.1:%d/tools/%s", port, RunPowerShellTool)
	httpResp, err := client.HTTPClient.Post(u, "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer httpResp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, httpResp.StatusCode)
	assert.Zero(t, executor.calls)
}

func TestClientRetriesUntilServerUp(t *testing.T) {
	port, err := internalnet.EphemeralTCPPort()
	require.NoError(t, err)

	client := NewClient(zaptest.NewLogger(t).Sugar(), "127.0.0.1", port,
		WithCustomizeRetryableClient(func(r *retryablehttp.Client) {
			r.RetryMax = 0
		}),
		WithClientWaitInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = client.WaitForServer(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// Package agent exposes the PowerShell execution core to remote callers over
// HTTP. The agent registers a single tool, run_powershell, and serves tool
// discovery and health endpoints alongside it.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/pwshd/pwshd/shell"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunPowerShellTool is the name of the single registered operation.
const RunPowerShellTool = "run_powershell"

// Executor is the execution core consumed by the agent. Its Execute is total:
// every failure is reported inside the returned string.
type Executor interface {
	Execute(ctx context.Context, code string, timeoutSecs int) string
}

// Agent is the HTTP server exposing the tool-call boundary.
type Agent struct {
	log *zap.SugaredLogger

	executor       Executor
	shellVariant   string
	defaultTimeout int
	listenAddr     string

	httpServer *http.Server
}

type Option func(a *Agent)

func WithListenAddr(s string) Option {
	return func(a *Agent) {
		a.listenAddr = s
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		a.log = l.Named("agent").Sugar()
	}
}

func WithLogLevel(l zapcore.Level) Option {
	return func(a *Agent) {
		a.log = a.log.WithOptions(zap.IncreaseLevel(l))
	}
}

// WithDefaultTimeout sets the timeout in seconds applied to calls that do not
// supply one.
func WithDefaultTimeout(secs int) Option {
	return func(a *Agent) {
		a.defaultTimeout = secs
	}
}

// WithShellVariant records the resolved shell variant reported by /healthz.
func WithShellVariant(v string) Option {
	return func(a *Agent) {
		a.shellVariant = v
	}
}

// New constructs an agent around the given executor.
func New(executor Executor, opts ...Option) (*Agent, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	a := &Agent{
		log:            logger.Named("agent").Sugar(),
		executor:       executor,
		defaultTimeout: shell.DefaultTimeoutSeconds,
		listenAddr:     "127.0.0.1:8383",
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Run serves until Stop is called or the listener fails.
func (a *Agent) Run() error {
	listener, err := net.Listen("tcp", a.listenAddr)
	if err != nil {
		return err
	}

	router := httprouter.New()
	router.GET("/healthz", a.health)
	router.GET("/tools", a.tools)
	router.POST("/tools/"+RunPowerShellTool, a.runPowerShell)

	server := &http.Server{Handler: router}
	a.httpServer = server

	a.log.Infow("listening", "Addr", listener.Addr().String())

	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *Agent) Stop() error {
	return a.httpServer.Close()
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status       string `json:"status"`
	ShellVariant string `json:"shell_variant,omitempty"`
}

func (a *Agent) health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	a.writeJSON(w, HealthResponse{
		Status:       "ok",
		ShellVariant: a.shellVariant,
	})
}

// ToolDescriptor describes a registered tool for discovery by callers.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

var runPowerShellParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"code": {
			"type": "string",
			"description": "The PowerShell code to execute"
		},
		"timeout": {
			"type": "integer",
			"description": "Timeout in seconds (default: 300, 0 or negative = no timeout)"
		}
	},
	"required": ["code"]
}`)

func (a *Agent) tools(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	a.writeJSON(w, []ToolDescriptor{
		{
			Name:        RunPowerShellTool,
			Description: "Runs PowerShell code and returns the output.",
			Parameters:  runPowerShellParams,
		},
	})
}

// RunPowerShellRequest is the tool-call body. A nil Timeout means the agent's
// default applies; zero or negative means no timeout.
type RunPowerShellRequest struct {
	Code    string `json:"code"`
	Timeout *int   `json:"timeout,omitempty"`
}

// RunPowerShellResponse carries the formatted result. Execution failures are
// reported inside Result as "Error: ..." strings, not as HTTP errors.
type RunPowerShellResponse struct {
	RequestID string `json:"request_id"`
	Result    string `json:"result"`
}

func (a *Agent) runPowerShell(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req RunPowerShellRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	timeout := a.defaultTimeout
	if req.Timeout != nil {
		timeout = *req.Timeout
	}

	id := uuid.NewString()
	a.log.Infow("tool call",
		"RequestID", id,
		"Tool", RunPowerShellTool,
		"CodeLength", len(req.Code),
		"TimeoutSeconds", timeout,
	)

	result := a.executor.Execute(r.Context(), req.Code, timeout)

	a.writeJSON(w, RunPowerShellResponse{
		RequestID: id,
		Result:    result,
	})
}

func (a *Agent) writeJSON(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		a.log.Debugf("error marshaling response: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.Write(b)
}

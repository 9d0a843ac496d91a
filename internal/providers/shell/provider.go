package shell

import (
	"context"
	"fmt"
	"time"

	"github.com/mcptools/bashserver/internal/config"
	"github.com/mcptools/bashserver/internal/logging"
	"github.com/mcptools/bashserver/internal/session"
	"github.com/mcptools/bashserver/internal/types"
)

// Version reported by shell.get_server_info.
const Version = "1.0.0"

// Provider exposes shell command execution and session lifecycle
// operations to the tool dispatch layer.
type Provider struct {
	registry *session.Manager
	executor *session.Executor
	cfg      config.SessionConfig
	log      *logging.Logger
}

// NewProvider creates a shell provider over a session registry and
// executor.
func NewProvider(registry *session.Manager, executor *session.Executor, cfg config.SessionConfig, log *logging.Logger) *Provider {
	return &Provider{
		registry: registry,
		executor: executor,
		cfg:      cfg,
		log:      log,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "shell",
		Name:        "Shell Service",
		Description: "Persistent bash sessions with foreground and background command execution",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"bash_execution",
			"multi_session",
			"background_processes",
			"process_groups",
			"idle_eviction",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "shell.execute_command":
		return p.executeCommand(ctx, params)
	case "shell.create_session":
		return p.createSession(params)
	case "shell.list_sessions":
		return p.listSessions()
	case "shell.kill_session":
		return p.killSession(params)
	case "shell.get_server_info":
		return p.serverInfo()
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "shell.execute_command",
			Name:        "Execute Command",
			Description: "Execute a bash command in a persistent session",
			Parameters: []types.Parameter{
				{Name: "command", Type: "string", Description: "The bash command to execute", Required: true},
				{Name: "session_id", Type: "string", Description: "Session identifier (default: \"default\")", Required: false},
				{Name: "timeout_seconds", Type: "number", Description: "Command timeout in seconds (default: 30)", Required: false},
				{Name: "background", Type: "boolean", Description: "Run the command as a tracked background job", Required: false},
			},
			Returns: "execution_result",
		},
		{
			ID:          "shell.create_session",
			Name:        "Create Session",
			Description: "Create a new bash session with its own working directory and environment",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Unique identifier; generated when omitted", Required: false},
				{Name: "working_directory", Type: "string", Description: "Initial working directory (default: server cwd)", Required: false},
				{Name: "env", Type: "object", Description: "Environment variable overrides", Required: false},
			},
			Returns: "session_summary",
		},
		{
			ID:          "shell.list_sessions",
			Name:        "List Sessions",
			Description: "List all active sessions with background job states",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
		{
			ID:          "shell.kill_session",
			Name:        "Kill Session",
			Description: "Terminate a session and every process it owns",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Session identifier to terminate", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "shell.get_server_info",
			Name:        "Get Server Info",
			Description: "Server version, capabilities and session count",
			Parameters:  []types.Parameter{},
			Returns:     "server_info",
		},
	}
}

func (p *Provider) executeCommand(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	command, ok := params["command"].(string)
	if !ok || command == "" {
		return Failure("command parameter required")
	}

	sessionID := session.DefaultID
	if sid, ok := params["session_id"].(string); ok && sid != "" {
		sessionID = sid
	}

	timeout := p.cfg.DefaultTimeout
	if secs, ok := params["timeout_seconds"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}

	background, _ := params["background"].(bool)

	if background {
		job, err := p.executor.ExecuteBackground(ctx, sessionID, command)
		if err != nil {
			return Failure(err.Error())
		}
		return Success(map[string]interface{}{
			"job_id":     job.ID,
			"session_id": sessionID,
		})
	}

	result, err := p.executor.Execute(ctx, sessionID, command, timeout)
	if err != nil {
		return Failure(err.Error())
	}

	return Success(map[string]interface{}{
		"stdout":     result.Stdout,
		"stderr":     result.Stderr,
		"exit_code":  result.ExitCode,
		"completed":  result.Completed,
		"timed_out":  result.TimedOut,
		"session_id": result.SessionID,
	})
}

func (p *Provider) createSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, _ := params["session_id"].(string)
	workingDir, _ := params["working_directory"].(string)

	env := make(map[string]string)
	if envMap, ok := params["env"].(map[string]interface{}); ok {
		for k, v := range envMap {
			if str, ok := v.(string); ok {
				env[k] = str
			}
		}
	}

	s, err := p.registry.Create(sessionID, workingDir, env)
	if err != nil {
		return Failure(err.Error())
	}

	return Success(map[string]interface{}{
		"id":                s.ID,
		"working_directory": s.WorkingDir,
		"created_at":        s.CreatedAt,
	})
}

func (p *Provider) listSessions() (*types.Result, error) {
	summaries := p.registry.List()

	return Success(map[string]interface{}{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

func (p *Provider) killSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return Failure("session_id parameter required")
	}

	if err := p.registry.Kill(sessionID); err != nil {
		return Failure(err.Error())
	}

	return Success(map[string]interface{}{
		"killed":     true,
		"session_id": sessionID,
	})
}

func (p *Provider) serverInfo() (*types.Result, error) {
	return Success(map[string]interface{}{
		"server":  "bashserver",
		"version": Version,
		"capabilities": map[string]bool{
			"bash_execution":       true,
			"multi_session":        true,
			"file_operations":      true,
			"background_processes": true,
		},
		"active_sessions": p.registry.Count(),
		"transport":       "http",
	})
}

// Success helper
func Success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

// Failure helper
func Failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}

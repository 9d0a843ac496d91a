package transfer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"

	"github.com/mcptools/bashserver/internal/config"
	"github.com/mcptools/bashserver/internal/logging"
	"github.com/mcptools/bashserver/internal/session"
	"github.com/mcptools/bashserver/internal/types"
)

// Provider implements bounded file transfer scoped to session working
// directories.
type Provider struct {
	registry *session.Manager
	cfg      config.TransferConfig
	log      *logging.Logger
}

// NewProvider creates a file transfer provider.
func NewProvider(registry *session.Manager, cfg config.TransferConfig, log *logging.Logger) *Provider {
	return &Provider{
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "transfer",
		Name:        "File Transfer Service",
		Description: "Bounded upload and download of files scoped to a session's working directory",
		Category:    types.CategoryFilesystem,
		Capabilities: []string{
			"upload",
			"download",
			"base64",
			"gzip",
			"size_limits",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "transfer.upload_file":
		return p.upload(params)
	case "transfer.download_file":
		return p.download(params)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "transfer.upload_file",
			Name:        "Upload File",
			Description: "Write content to a file, resolving relative paths against the session working directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Target file path", Required: true},
				{Name: "content", Type: "string", Description: "File content, encoded per encoding", Required: true},
				{Name: "encoding", Type: "string", Description: "base64, text or gzip (default: base64)", Required: false},
				{Name: "session_id", Type: "string", Description: "Session context (default: \"default\")", Required: false},
				{Name: "mode", Type: "string", Description: "overwrite or append (default: overwrite)", Required: false},
			},
			Returns: "upload_info",
		},
		{
			ID:          "transfer.download_file",
			Name:        "Download File",
			Description: "Read a file with a size cap checked before the content is loaded",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Source file path", Required: true},
				{Name: "encoding", Type: "string", Description: "base64, text or gzip (default: base64)", Required: false},
				{Name: "session_id", Type: "string", Description: "Session context (default: \"default\")", Required: false},
				{Name: "max_bytes", Type: "number", Description: "Maximum file size in bytes (default: 10 MiB)", Required: false},
			},
			Returns: "file_content",
		},
	}
}

func (p *Provider) upload(params map[string]interface{}) (*types.Result, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return Failure("path parameter required")
	}
	content, ok := params["content"].(string)
	if !ok {
		return Failure("content parameter required")
	}

	encoding := "base64"
	if enc, ok := params["encoding"].(string); ok && enc != "" {
		encoding = enc
	}
	mode := "overwrite"
	if m, ok := params["mode"].(string); ok && m != "" {
		mode = m
	}

	target, err := p.resolvePath(path, params)
	if err != nil {
		return Failure(err.Error())
	}

	data, err := decode(content, encoding)
	if err != nil {
		return Failure(err.Error())
	}

	size, err := writeFile(target, data, mode)
	if err != nil {
		return Failure(err.Error())
	}

	return Success(map[string]interface{}{
		"path":     target,
		"size":     size,
		"mode":     mode,
		"encoding": encoding,
	})
}

func (p *Provider) download(params map[string]interface{}) (*types.Result, error) {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return Failure("path parameter required")
	}

	encoding := "base64"
	if enc, ok := params["encoding"].(string); ok && enc != "" {
		encoding = enc
	}

	maxBytes := p.cfg.MaxDownloadBytes
	if mb, ok := params["max_bytes"].(float64); ok && mb > 0 {
		maxBytes = int64(mb)
	}

	source, err := p.resolvePath(path, params)
	if err != nil {
		return Failure(err.Error())
	}

	data, info, err := readBounded(source, maxBytes)
	if err != nil {
		return Failure(err.Error())
	}

	encoded, err := encode(data, encoding)
	if err != nil {
		return Failure(err.Error())
	}

	return Success(map[string]interface{}{
		"path":       source,
		"encoding":   encoding,
		"size":       info.Size(),
		"media_type": mimetype.Detect(data).String(),
		"content":    encoded,
	})
}

// resolvePath anchors relative paths at the session's working directory.
func (p *Provider) resolvePath(path string, params map[string]interface{}) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	sessionID := session.DefaultID
	if sid, ok := params["session_id"].(string); ok && sid != "" {
		sessionID = sid
	}

	s, err := p.registry.Get(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.WorkingDir, path), nil
}

// writeFile writes data with the requested mode, creating parent
// directories, and reports the resulting file size.
func writeFile(path string, data []byte, mode string) (int64, error) {
	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case "overwrite":
		flags |= os.O_TRUNC
	case "append":
		flags |= os.O_APPEND
	default:
		return 0, fmt.Errorf("unsupported mode: %s (use overwrite or append)", mode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return 0, fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	return info.Size(), nil
}

// readBounded stats the file first so an oversized file is rejected
// before its content is loaded into memory.
func readBounded(path string, maxBytes int64) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%w: path is not a file: %s", ErrReadFailure, path)
	}
	if info.Size() > maxBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	return data, info, nil
}

func decode(content, encoding string) ([]byte, error) {
	switch encoding {
	case "base64":
		data, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 content: %w", err)
		}
		return data, nil
	case "text":
		return []byte(content), nil
	case "gzip":
		compressed, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 content: %w", err)
		}
		zr, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress content: %w", err)
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress content: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s (use base64, text or gzip)", encoding)
	}
}

func encode(data []byte, encoding string) (string, error) {
	switch encoding {
	case "base64":
		return base64.StdEncoding.EncodeToString(data), nil
	case "text":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("file contains binary data, use encoding=base64")
		}
		return string(data), nil
	case "gzip":
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return "", fmt.Errorf("failed to compress content: %w", err)
		}
		if err := zw.Close(); err != nil {
			return "", fmt.Errorf("failed to compress content: %w", err)
		}
		return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
	default:
		return "", fmt.Errorf("unsupported encoding: %s (use base64, text or gzip)", encoding)
	}
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

package service

import (
	"context"
	"testing"

	"github.com/mcptools/bashserver/internal/types"
)

type mockProvider struct {
	id       string
	lastTool string
}

func (m *mockProvider) Definition() types.Service {
	return types.Service{
		ID:           m.id,
		Name:         "Mock Service",
		Description:  "A mock service for testing",
		Category:     types.CategorySystem,
		Capabilities: []string{"read", "write"},
		Tools: []types.Tool{
			{
				ID:          m.id + ".test",
				Name:        "Test Tool",
				Description: "A test tool",
				Returns:     "string",
			},
		},
	}
}

func (m *mockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	m.lastTool = toolID
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"result": "success"},
	}, nil
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{id: "test"}

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := r.Get("test"); !ok {
		t.Error("Service should be registered")
	}
}

func TestRegisterEmptyID(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&mockProvider{id: ""}); err == nil {
		t.Error("Registering an empty service ID should fail")
	}
}

func TestList(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test1"})
	r.Register(&mockProvider{id: "test2"})

	services := r.List(nil)
	if len(services) != 2 {
		t.Errorf("Expected 2 services, got %d", len(services))
	}

	fs := types.CategoryFilesystem
	if got := r.List(&fs); len(got) != 0 {
		t.Errorf("Expected no filesystem services, got %d", len(got))
	}
}

func TestExecuteRouting(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{id: "test"}
	r.Register(p)

	result, err := r.Execute(context.Background(), "test.test", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("Execute failed: %v", err)
	}
	if p.lastTool != "test.test" {
		t.Errorf("Provider should receive the full tool ID, got %s", p.lastTool)
	}
}

func TestExecuteUnknownService(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Execute(context.Background(), "missing.tool", nil, nil); err == nil {
		t.Error("Executing against an unregistered service should fail")
	}
}

func TestExecuteMalformedToolID(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test"})

	if _, err := r.Execute(context.Background(), "noservicepart", nil, nil); err == nil {
		t.Error("Tool IDs without a service namespace should fail")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test"})
	r.Unregister("test")

	if _, ok := r.Get("test"); ok {
		t.Error("Service should be unregistered")
	}
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test"})

	stats := r.Stats()
	if stats["total_services"] != 1 {
		t.Errorf("Expected 1 service, got %v", stats["total_services"])
	}
	if stats["total_tools"] != 1 {
		t.Errorf("Expected 1 tool, got %v", stats["total_tools"])
	}
}

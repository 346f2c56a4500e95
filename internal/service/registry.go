package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/threadline/artifactd/internal/artifact"
)

// Info describes a runner for discovery.
type Info struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Types        []artifact.Type `json:"types"`
	Capabilities []string        `json:"capabilities"`
}

// Result is the uniform runner outcome shape.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *string        `json:"error,omitempty"`
}

// Success builds a successful result.
func Success(data map[string]any) *Result {
	return &Result{Success: true, Data: data}
}

// Failure builds a failed result.
func Failure(msg string) *Result {
	return &Result{Success: false, Error: &msg}
}

// Runner executes one family of artifact types.
type Runner interface {
	Definition() Info
	Run(ctx context.Context, instanceID string, art *artifact.Parsed) (*Result, error)
}

// Registry routes parsed artifacts to their runners.
type Registry struct {
	runners sync.Map // artifact.Type -> Runner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a runner for every type it declares.
func (r *Registry) Register(runner Runner) error {
	def := runner.Definition()
	if def.ID == "" {
		return fmt.Errorf("runner ID cannot be empty")
	}
	if len(def.Types) == 0 {
		return fmt.Errorf("runner %s declares no artifact types", def.ID)
	}
	for _, t := range def.Types {
		if existing, loaded := r.runners.LoadOrStore(t, runner); loaded {
			return fmt.Errorf("artifact type %q already handled by %s",
				t, existing.(Runner).Definition().ID)
		}
	}
	return nil
}

// ForType retrieves the runner for an artifact type.
func (r *Registry) ForType(t artifact.Type) (Runner, bool) {
	val, ok := r.runners.Load(t)
	if !ok {
		return nil, false
	}
	return val.(Runner), true
}

// List returns all registered runners, sorted by ID.
func (r *Registry) List() []Info {
	seen := make(map[string]Info)
	r.runners.Range(func(_, value any) bool {
		def := value.(Runner).Definition()
		seen[def.ID] = def
		return true
	})

	infos := make([]Info, 0, len(seen))
	for _, def := range seen {
		infos = append(infos, def)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Run dispatches an artifact to its runner. An unroutable artifact yields a
// failure result, never a panic or a dropped request.
func (r *Registry) Run(ctx context.Context, instanceID string, art *artifact.Parsed) (*Result, error) {
	runner, ok := r.ForType(art.Type)
	if !ok {
		return Failure(fmt.Sprintf("no runner for artifact type %q", art.Type)),
			fmt.Errorf("no runner for artifact type %q", art.Type)
	}
	return runner.Run(ctx, instanceID, art)
}

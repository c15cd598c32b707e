package runner

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
	"github.com/tnqbao/gau-playbook-orchestrator/repository/repotest"
)

type invocation struct {
	inventory string
	playbook  string
	content   []byte
}

type scripted struct {
	result *infra.CommandResult
	err    error
	panics bool
}

// fakeAnsible answers playbook and ping calls from scripted outcomes keyed
// by playbook base name or node hostname
type fakeAnsible struct {
	mu      sync.Mutex
	results map[string]scripted
	calls   []invocation
}

func newFakeAnsible() *fakeAnsible {
	return &fakeAnsible{results: map[string]scripted{}}
}

func (f *fakeAnsible) on(key string, s scripted) *fakeAnsible {
	f.results[key] = s
	return f
}

func (f *fakeAnsible) RunPlaybook(_ context.Context, inventoryPath, playbookPath string) (*infra.CommandResult, error) {
	content, _ := os.ReadFile(inventoryPath)

	f.mu.Lock()
	f.calls = append(f.calls, invocation{inventory: inventoryPath, playbook: playbookPath, content: content})
	s, ok := f.results[filepath.Base(playbookPath)]
	f.mu.Unlock()

	if s.panics {
		panic("boom")
	}
	if !ok {
		return &infra.CommandResult{Stdout: "ok\n"}, nil
	}
	return s.result, s.err
}

func (f *fakeAnsible) Ping(_ context.Context, node *entity.Node) (*infra.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{playbook: node.Hostname})
	s := f.results[node.Hostname]
	return s.result, s.err
}

func (f *fakeAnsible) invocations() []invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invocation(nil), f.calls...)
}

type fixture struct {
	repo         *repository.Repository
	ansible      *fakeAnsible
	playbooksDir string
	inventoryDir string
	runner       *Runner
	logger       *infra.LoggerClient
}

func newFixture(t *testing.T, playbooks ...string) *fixture {
	t.Helper()

	f := &fixture{
		repo:         repository.NewRepository(repotest.OpenTestDB(t)),
		ansible:      newFakeAnsible(),
		playbooksDir: t.TempDir(),
		inventoryDir: t.TempDir(),
		logger:       infra.NewLoggerClient(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, name := range playbooks {
		require.NoError(t, os.WriteFile(filepath.Join(f.playbooksDir, name), []byte("- hosts: all\n"), 0o644))
	}
	f.runner = NewRunner(f.repo, f.ansible, NewCatalog(f.playbooksDir), NewInventoryBuilder(f.inventoryDir),
		f.logger, infra.NewNoopTelemetry())
	return f
}

func (f *fixture) node(t *testing.T, name string) *entity.Node {
	t.Helper()
	node := &entity.Node{Name: name, Hostname: name + ".local", Username: "deploy", Port: 22}
	require.NoError(t, f.repo.NodeRepo.Create(node))
	return node
}

func (f *fixture) execution(t *testing.T, id uint) *entity.PlaybookExecution {
	t.Helper()
	execution, err := f.repo.ExecutionRepo.FindByID(id)
	require.NoError(t, err)
	return execution
}

func (f *fixture) assertInventoryDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.inventoryDir)
	require.NoError(t, err)
	require.Empty(t, entries, "inventory files must be removed after a run")
}

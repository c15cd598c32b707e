package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-playbook-orchestrator/config"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/http/controller"
	"github.com/tnqbao/gau-playbook-orchestrator/http/route"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/notify"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
	"github.com/tnqbao/gau-playbook-orchestrator/repository/repotest"
	"github.com/tnqbao/gau-playbook-orchestrator/runner"
)

type stubAnsible struct{}

func (stubAnsible) RunPlaybook(context.Context, string, string) (*infra.CommandResult, error) {
	return &infra.CommandResult{Stdout: "ok"}, nil
}

func (stubAnsible) Ping(_ context.Context, node *entity.Node) (*infra.CommandResult, error) {
	if node.Hostname == "down.local" {
		return &infra.CommandResult{ExitCode: 1, Stderr: "unreachable"}, nil
	}
	return &infra.CommandResult{Stdout: "pong"}, nil
}

type testServer struct {
	router *gin.Engine
	repo   *repository.Repository
	pool   *runner.Pool
	cfg    *config.Config
}

func newTestServer(t *testing.T, mutate ...func(*config.EnvConfig)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &config.EnvConfig{}
	env.Paths.Playbooks = t.TempDir()
	env.Paths.Inventory = t.TempDir()
	env.Runner.HistoryLimit = 50
	env.JWT.Algorithm = "HS256"
	for _, fn := range mutate {
		fn(env)
	}
	cfg := &config.Config{EnvConfig: env}

	require.NoError(t, os.WriteFile(filepath.Join(env.Paths.Playbooks, "site.yml"), []byte("- hosts: all\n"), 0o644))

	logger := infra.NewLoggerClient(slog.NewTextHandler(io.Discard, nil))
	infraClient := &infra.Infra{Logger: logger, Telemetry: infra.NewNoopTelemetry()}
	repo := repository.NewRepository(repotest.OpenTestDB(t))

	catalog := runner.NewCatalog(env.Paths.Playbooks)
	jobRunner := runner.NewRunner(repo, stubAnsible{}, catalog, runner.NewInventoryBuilder(env.Paths.Inventory), logger, infraClient.Telemetry)
	pool := runner.NewPool(1, 4, logger)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })
	hub := notify.NewHub(logger, nil)

	ctrl := controller.NewController(cfg, infraClient, repo, controller.Services{
		Catalog:    catalog,
		Dispatcher: runner.NewDispatcher(jobRunner, pool, hub, logger),
		Prober:     runner.NewProber(repo, stubAnsible{}, logger),
		Hub:        hub,
	})

	return &testServer{router: routes.SetupRouter(ctrl), repo: repo, pool: pool, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createNode(t *testing.T, name string) uint {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/nodes", gin.H{"name": name, "hostname": name + ".local", "username": "root"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return uint(decode[map[string]interface{}](t, rec)["id"].(float64))
}

func TestExecuteWithoutPlaybooksCreatesNoRecord(t *testing.T) {
	s := newTestServer(t)
	nodeID := s.createNode(t, "web1")

	rec := s.do(t, http.MethodPost, "/api/execute", gin.H{"playbooks": []string{}, "node_ids": []uint{nodeID}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No playbooks specified", decode[map[string]string](t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/execute", gin.H{"playbooks": []string{"site.yml"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No targets specified", decode[map[string]string](t, rec)["error"])

	executions, err := s.repo.ExecutionRepo.ListRecent(50)
	require.NoError(t, err)
	assert.Empty(t, executions)
}

func TestExecuteAcceptsAndCompletes(t *testing.T) {
	s := newTestServer(t)
	nodeID := s.createNode(t, "web1")

	rec := s.do(t, http.MethodPost, "/api/execute", gin.H{"playbooks": []string{"site.yml"}, "node_ids": []uint{nodeID}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "Execution started", body["message"])
	id := uint(body["execution_id"].(float64))
	require.NotZero(t, id)

	require.NoError(t, s.pool.Shutdown(context.Background()))

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/executions/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	execution := decode[entity.PlaybookExecution](t, rec)
	assert.Equal(t, entity.ExecutionStatusCompleted, execution.Status)
	assert.Contains(t, execution.Output, "=== Playbook: site.yml ===")

	rec = s.do(t, http.MethodGet, "/api/executions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entity.PlaybookExecution](t, rec), 1)
}

func TestExecuteRefusedWhenPoolClosed(t *testing.T) {
	s := newTestServer(t)
	nodeID := s.createNode(t, "web1")
	require.NoError(t, s.pool.Shutdown(context.Background()))

	rec := s.do(t, http.MethodPost, "/api/execute", gin.H{"playbooks": []string{"site.yml"}, "node_ids": []uint{nodeID}})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	id := uint(decode[map[string]interface{}](t, rec)["execution_id"].(float64))
	execution, err := s.repo.ExecutionRepo.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, entity.ExecutionStatusFailed, execution.Status)
}

func TestGetExecutionNotFound(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/executions/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/executions/abc", nil).Code)
}

func TestNodeCRUD(t *testing.T) {
	s := newTestServer(t)
	id := s.createNode(t, "web1")

	rec := s.do(t, http.MethodPost, "/api/nodes", gin.H{"name": "web1", "hostname": "x", "username": "root"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/nodes", gin.H{"name": "web2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/nodes/%d", id), gin.H{"port": 2222, "description": "frontend"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/nodes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	nodes := decode[[]map[string]interface{}](t, rec)
	require.Len(t, nodes, 1)
	assert.Equal(t, float64(2222), nodes[0]["port"])
	assert.Equal(t, "frontend", nodes[0]["description"])
	assert.Equal(t, "unknown", nodes[0]["status"])
	assert.Equal(t, "root", nodes[0]["username"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/nodes/999", gin.H{"port": 22}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, fmt.Sprintf("/api/nodes/%d", id), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, fmt.Sprintf("/api/nodes/%d", id), nil).Code)
}

func TestGroupLifecycleKeepsNodes(t *testing.T) {
	s := newTestServer(t)
	a := s.createNode(t, "a")
	b := s.createNode(t, "b")

	rec := s.do(t, http.MethodPost, "/api/groups", gin.H{"name": "web", "node_ids": []uint{a, 404}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	groupID := uint(decode[map[string]interface{}](t, rec)["id"].(float64))

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/groups/%d", groupID), gin.H{"node_ids": []uint{a, b}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/groups", nil)
	groups := decode[[]map[string]interface{}](t, rec)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0]["nodes"], 2)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, fmt.Sprintf("/api/groups/%d", groupID), nil).Code)

	rec = s.do(t, http.MethodGet, "/api/nodes", nil)
	nodes := decode[[]map[string]interface{}](t, rec)
	assert.Len(t, nodes, 2)
	assert.Empty(t, nodes[0]["groups"])

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/groups", gin.H{"name": "db"}).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/groups", gin.H{"name": "db"}).Code)
}

func TestPlaybookEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/playbooks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	playbooks := decode[[]entity.Playbook](t, rec)
	require.Len(t, playbooks, 1)
	assert.Equal(t, "site.yml", playbooks[0].Name)

	rec = s.do(t, http.MethodGet, "/api/playbooks/site.yml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "- hosts: all\n", decode[map[string]string](t, rec)["content"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/playbooks/missing.yml", nil).Code)
}

func TestPingEndpoint(t *testing.T) {
	s := newTestServer(t)
	up := s.createNode(t, "up")
	down := s.createNode(t, "down")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/ping", gin.H{"node_ids": []uint{}}).Code)

	rec := s.do(t, http.MethodPost, "/api/ping", gin.H{"node_ids": []uint{up, down, 77}})
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[map[string]runner.ProbeResult](t, rec)
	require.Len(t, results, 2)
	assert.Equal(t, runner.ProbeSuccess, results[fmt.Sprint(up)].Status)
	assert.Equal(t, runner.ProbeFailed, results[fmt.Sprint(down)].Status)

	node, err := s.repo.NodeRepo.FindByID(down)
	require.NoError(t, err)
	assert.Equal(t, entity.NodeStatusOffline, node.Status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["queue_depth"])
}

func signToken(claims jwt.MapClaims, env *config.EnvConfig) (string, error) {
	method := jwt.GetSigningMethod(env.JWT.Algorithm)
	if method == nil {
		return "", fmt.Errorf("unsupported signing algorithm %q", env.JWT.Algorithm)
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(env.JWT.SecretKey))
}

func TestAuthRequiredWhenSecretConfigured(t *testing.T) {
	s := newTestServer(t, func(env *config.EnvConfig) {
		env.JWT.SecretKey = "test-secret"
	})

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/nodes", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/nodes", nil, "Authorization", "Bearer nope").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)

	token, err := signToken(jwt.MapClaims{"user_id": "operator-1"}, s.cfg.EnvConfig)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/nodes", nil, "Authorization", "Bearer "+token).Code)
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
)

func TestRequestValidate(t *testing.T) {
	assert.True(t, errors.Is(Request{NodeIDs: []uint{1}}.Validate(), ErrNoPlaybooks))
	assert.True(t, errors.Is(Request{Playbooks: []string{"a.yml"}}.Validate(), ErrNoTargets))
	assert.NoError(t, Request{Playbooks: []string{"a.yml"}, GroupIDs: []uint{1}}.Validate())
}

func TestExecuteAllSucceed(t *testing.T) {
	f := newFixture(t, "a.yml", "b.yml")
	node := f.node(t, "web1")
	f.ansible.on("a.yml", scripted{result: &infra.CommandResult{Stdout: "A ran"}})
	f.ansible.on("b.yml", scripted{result: &infra.CommandResult{Stdout: "B ran"}})

	id, err := f.runner.Execute(context.Background(), Request{Playbooks: []string{"a.yml", "b.yml"}, NodeIDs: []uint{node.ID}})
	require.NoError(t, err)

	got := f.execution(t, id)
	assert.Equal(t, entity.ExecutionStatusCompleted, got.Status)
	assert.Equal(t, "=== Playbook: a.yml ===\nA ran\n=== Playbook: b.yml ===\nB ran", got.Output)
	assert.Nil(t, got.ErrorOutput)
	require.NotNil(t, got.CompletedAt)

	calls := f.ansible.invocations()
	require.Len(t, calls, 2)
	assert.True(t, strings.HasSuffix(calls[0].playbook, "a.yml"))
	assert.True(t, strings.HasSuffix(calls[1].playbook, "b.yml"))
	assert.Equal(t, calls[0].inventory, calls[1].inventory)
	assert.Contains(t, string(calls[0].content), "web1.local")
	f.assertInventoryDirEmpty(t)
}

func TestExecuteMissingPlaybookDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t, "b.yml")
	node := f.node(t, "web1")
	f.ansible.on("b.yml", scripted{result: &infra.CommandResult{Stdout: "B ran"}})

	id, err := f.runner.Execute(context.Background(), Request{Playbooks: []string{"a.yml", "b.yml"}, NodeIDs: []uint{node.ID}})
	require.NoError(t, err)

	got := f.execution(t, id)
	assert.Equal(t, entity.ExecutionStatusFailed, got.Status)
	assert.Contains(t, got.Output, "=== Playbook: b.yml ===\nB ran")
	require.NotNil(t, got.ErrorOutput)
	assert.Contains(t, *got.ErrorOutput, "Playbook a.yml not found")
	assert.Len(t, f.ansible.invocations(), 1)
	f.assertInventoryDirEmpty(t)
}

func TestExecuteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		script scripted
		want   string
		output bool
	}{
		{"stderr", scripted{result: &infra.CommandResult{Stdout: "partial", Stderr: "unreachable", ExitCode: 4}}, "=== Playbook: a.yml ===\nunreachable", true},
		{"exit code", scripted{result: &infra.CommandResult{Stdout: "x", ExitCode: 2}}, "Playbook a.yml exited with code 2", true},
		{"timeout", scripted{err: fmt.Errorf("wrapped: %w", infra.ErrCommandTimeout)}, "Playbook a.yml timed out", false},
		{"exec error", scripted{err: errors.New("no such file")}, "Error executing a.yml: no such file", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, "a.yml")
			node := f.node(t, "web1")
			f.ansible.on("a.yml", tc.script)

			id, err := f.runner.Execute(context.Background(), Request{Playbooks: []string{"a.yml"}, NodeIDs: []uint{node.ID}})
			require.NoError(t, err)

			got := f.execution(t, id)
			assert.Equal(t, entity.ExecutionStatusFailed, got.Status)
			require.NotNil(t, got.ErrorOutput)
			assert.Equal(t, tc.want, *got.ErrorOutput)
			assert.Equal(t, tc.output, got.Output != "")
			f.assertInventoryDirEmpty(t)
		})
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	f := newFixture(t, "a.yml")
	node := f.node(t, "web1")
	f.ansible.on("a.yml", scripted{panics: true})

	id, err := f.runner.Execute(context.Background(), Request{Playbooks: []string{"a.yml"}, NodeIDs: []uint{node.ID}})
	require.NoError(t, err)

	got := f.execution(t, id)
	assert.Equal(t, entity.ExecutionStatusFailed, got.Status)
	require.NotNil(t, got.ErrorOutput)
	assert.Contains(t, *got.ErrorOutput, "panic: boom")
	require.NotNil(t, got.CompletedAt)
	f.assertInventoryDirEmpty(t)
}

func TestRunInventoryFailureFailsExecution(t *testing.T) {
	f := newFixture(t, "a.yml")
	node := f.node(t, "web1")
	require.NoError(t, os.RemoveAll(f.inventoryDir))

	id, err := f.runner.Execute(context.Background(), Request{Playbooks: []string{"a.yml"}, NodeIDs: []uint{node.ID}})
	require.NoError(t, err)

	got := f.execution(t, id)
	assert.Equal(t, entity.ExecutionStatusFailed, got.Status)
	require.NotNil(t, got.ErrorOutput)
	assert.Contains(t, *got.ErrorOutput, "failed to build inventory")
	assert.Empty(t, f.ansible.invocations())
}

func TestRunUnknownTargetsStillRuns(t *testing.T) {
	f := newFixture(t, "a.yml")

	id, err := f.runner.Execute(context.Background(), Request{Playbooks: []string{"a.yml"}, NodeIDs: []uint{404}, GroupIDs: []uint{405}})
	require.NoError(t, err)

	got := f.execution(t, id)
	assert.Equal(t, entity.ExecutionStatusCompleted, got.Status)
	assert.Equal(t, []uint{404}, []uint(got.TargetNodes))
	assert.Equal(t, []uint{405}, []uint(got.TargetGroups))
}

func TestRunPendingTransitionsThroughRunning(t *testing.T) {
	f := newFixture(t, "a.yml")
	node := f.node(t, "web1")
	ctx := context.Background()

	execution, err := f.runner.Prepare(ctx, Request{Playbooks: []string{"a.yml"}, NodeIDs: []uint{node.ID}}, entity.ExecutionStatusPending)
	require.NoError(t, err)
	assert.Equal(t, entity.ExecutionStatusPending, f.execution(t, execution.ID).Status)

	require.NoError(t, f.runner.Run(ctx, execution))
	assert.Equal(t, entity.ExecutionStatusCompleted, f.execution(t, execution.ID).Status)

	assert.ErrorIs(t, f.runner.Run(ctx, execution), repository.ErrInvalidTransition)
	assert.Len(t, f.ansible.invocations(), 1)
}

func TestAbortFailsPendingExecution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	execution, err := f.runner.Prepare(ctx, Request{Playbooks: []string{"a.yml"}, NodeIDs: []uint{1}}, entity.ExecutionStatusPending)
	require.NoError(t, err)

	require.NoError(t, f.runner.Abort(ctx, execution, ErrQueueFull))

	got := f.execution(t, execution.ID)
	assert.Equal(t, entity.ExecutionStatusFailed, got.Status)
	require.NotNil(t, got.ErrorOutput)
	assert.Equal(t, ErrQueueFull.Error(), *got.ErrorOutput)
}

func TestAbortRefusesFinishedExecution(t *testing.T) {
	f := newFixture(t, "a.yml")
	ctx := context.Background()
	node := f.node(t, "web1")

	id, err := f.runner.Execute(ctx, Request{Playbooks: []string{"a.yml"}, NodeIDs: []uint{node.ID}})
	require.NoError(t, err)
	execution := f.execution(t, id)
	require.Equal(t, entity.ExecutionStatusCompleted, execution.Status)

	assert.ErrorIs(t, f.runner.Abort(ctx, execution, ErrQueueFull), repository.ErrInvalidTransition)

	got := f.execution(t, id)
	assert.Equal(t, entity.ExecutionStatusCompleted, got.Status)
	assert.Nil(t, got.ErrorOutput)
	assert.Equal(t, entity.ExecutionStatusCompleted, execution.Status)
}

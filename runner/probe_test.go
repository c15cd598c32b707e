package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
)

func TestProbeClassifiesAndPersists(t *testing.T) {
	f := newFixture(t)
	up := f.node(t, "up")
	down := f.node(t, "down")
	slow := f.node(t, "slow")
	broken := f.node(t, "broken")

	f.ansible.
		on("up.local", scripted{result: &infra.CommandResult{Stdout: "pong"}}).
		on("down.local", scripted{result: &infra.CommandResult{ExitCode: 4, Stderr: "unreachable"}}).
		on("slow.local", scripted{result: &infra.CommandResult{}, err: fmt.Errorf("x: %w", infra.ErrCommandTimeout)}).
		on("broken.local", scripted{err: errors.New("ansible not installed")})

	prober := NewProber(f.repo, f.ansible, f.logger)
	results, err := prober.Probe(context.Background(), []uint{up.ID, down.ID, slow.ID, broken.ID, 999})
	require.NoError(t, err)

	require.Len(t, results, 4)
	assert.Equal(t, ProbeResult{Status: ProbeSuccess, Output: "pong"}, results[up.ID])
	assert.Equal(t, ProbeFailed, results[down.ID].Status)
	assert.Equal(t, ProbeResult{Status: ProbeTimeout, Error: "Connection timed out"}, results[slow.ID])
	assert.Equal(t, ProbeResult{Status: ProbeError, Error: "ansible not installed"}, results[broken.ID])
	_, present := results[999]
	assert.False(t, present)

	want := map[uint]entity.NodeStatus{
		up.ID:     entity.NodeStatusOnline,
		down.ID:   entity.NodeStatusOffline,
		slow.ID:   entity.NodeStatusTimeout,
		broken.ID: entity.NodeStatusError,
	}
	for id, status := range want {
		node, err := f.repo.NodeRepo.FindByID(id)
		require.NoError(t, err)
		assert.Equal(t, status, node.Status, "node %d", id)
	}
}

func TestProbeOnlyUnknownIDs(t *testing.T) {
	f := newFixture(t)

	results, err := NewProber(f.repo, f.ansible, f.logger).Probe(context.Background(), []uint{1, 2})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, f.ansible.invocations())
}

// cancellingPinger simulates a caller that disconnects while a ping runs
type cancellingPinger struct {
	cancel context.CancelFunc
}

func (p cancellingPinger) Ping(ctx context.Context, node *entity.Node) (*infra.CommandResult, error) {
	p.cancel()
	return nil, fmt.Errorf("ansible interrupted: %w", ctx.Err())
}

func TestProbeCommitsAfterCallerCancels(t *testing.T) {
	f := newFixture(t)
	node := f.node(t, "web1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := NewProber(f.repo, cancellingPinger{cancel: cancel}, f.logger).Probe(ctx, []uint{node.ID})
	require.NoError(t, err)
	assert.Equal(t, ProbeError, results[node.ID].Status)

	got, err := f.repo.NodeRepo.FindByID(node.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.NodeStatusError, got.Status)
}

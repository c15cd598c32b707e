package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"github.com/tnqbao/gau-playbook-orchestrator/infra"
	"github.com/tnqbao/gau-playbook-orchestrator/repository"
)

type ProbeStatus string

const (
	ProbeSuccess ProbeStatus = "success"
	ProbeFailed  ProbeStatus = "failed"
	ProbeTimeout ProbeStatus = "timeout"
	ProbeError   ProbeStatus = "error"
)

// ProbeResult is the outcome of pinging one node
type ProbeResult struct {
	Status ProbeStatus `json:"status"`
	Output string      `json:"output,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Pinger checks whether a single node answers
type Pinger interface {
	Ping(ctx context.Context, node *entity.Node) (*infra.CommandResult, error)
}

// Prober checks reachability of nodes one after another
type Prober struct {
	repo   *repository.Repository
	pinger Pinger
	logger *infra.LoggerClient
}

func NewProber(repo *repository.Repository, pinger Pinger, logger *infra.LoggerClient) *Prober {
	return &Prober{repo: repo, pinger: pinger, logger: logger}
}

// Probe pings every known node among ids and stores the new statuses in a
// single transaction. Unknown ids are left out of the result.
func (p *Prober) Probe(ctx context.Context, ids []uint) (map[uint]ProbeResult, error) {
	repo := p.repo.WithContext(ctx)

	nodes, err := repo.NodeRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	results := make(map[uint]ProbeResult, len(nodes))
	statuses := make(map[uint]entity.NodeStatus, len(nodes))
	for i := range nodes {
		node := &nodes[i]
		result, status := p.probeOne(ctx, node)
		results[node.ID] = result
		statuses[node.ID] = status
	}

	// a caller that went away must not discard probes that already ran
	commit := p.repo.WithContext(context.WithoutCancel(ctx))
	if err := commit.NodeRepo.UpdateStatuses(statuses); err != nil {
		return nil, fmt.Errorf("failed to update node statuses: %w", err)
	}

	return results, nil
}

func (p *Prober) probeOne(ctx context.Context, node *entity.Node) (ProbeResult, entity.NodeStatus) {
	result, err := p.pinger.Ping(ctx, node)
	switch {
	case errors.Is(err, infra.ErrCommandTimeout):
		p.logger.WarningWithContextf(ctx, "[Prober] Node %s (%s) timed out", node.Name, node.Hostname)
		return ProbeResult{Status: ProbeTimeout, Error: "Connection timed out"}, entity.NodeStatusTimeout
	case err != nil:
		p.logger.ErrorWithContextf(ctx, err, "[Prober] Failed to ping node %s", node.Name)
		return ProbeResult{Status: ProbeError, Error: err.Error()}, entity.NodeStatusError
	case result.ExitCode == 0:
		return ProbeResult{Status: ProbeSuccess, Output: result.Stdout, Error: result.Stderr}, entity.NodeStatusOnline
	default:
		return ProbeResult{Status: ProbeFailed, Output: result.Stdout, Error: result.Stderr}, entity.NodeStatusOffline
	}
}

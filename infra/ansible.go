package infra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/tnqbao/gau-playbook-orchestrator/config"
	"github.com/tnqbao/gau-playbook-orchestrator/entity"
)

// ErrCommandTimeout is returned when an ansible invocation exceeds its deadline
var ErrCommandTimeout = errors.New("command timed out")

// CommandResult is what a finished ansible process left behind
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// AnsibleClient shells out to ansible-playbook and ansible
type AnsibleClient struct {
	PlaybookBinary  string
	AdHocBinary     string
	SSHCommonArgs   string
	ExtraArgs       []string
	PlaybookTimeout time.Duration
	PingTimeout     time.Duration
}

func InitAnsibleClient(cfg *config.EnvConfig) *AnsibleClient {
	extra, err := shellquote.Split(cfg.Ansible.ExtraArgs)
	if err != nil {
		panic(fmt.Sprintf("Invalid ANSIBLE_EXTRA_ARGS: %v", err))
	}

	return &AnsibleClient{
		PlaybookBinary:  cfg.Ansible.PlaybookBinary,
		AdHocBinary:     cfg.Ansible.AdHocBinary,
		SSHCommonArgs:   cfg.Ansible.SSHCommonArgs,
		ExtraArgs:       extra,
		PlaybookTimeout: cfg.Ansible.PlaybookTimeout,
		PingTimeout:     cfg.Ansible.PingTimeout,
	}
}

// RunPlaybook runs one playbook against an inventory file
func (a *AnsibleClient) RunPlaybook(ctx context.Context, inventoryPath, playbookPath string) (*CommandResult, error) {
	args := []string{"-i", inventoryPath, playbookPath}
	args = append(args, a.sshArgs()...)
	args = append(args, a.ExtraArgs...)

	return a.run(ctx, a.PlaybookTimeout, a.PlaybookBinary, args...)
}

// Ping runs the ping module against a single node
func (a *AnsibleClient) Ping(ctx context.Context, node *entity.Node) (*CommandResult, error) {
	args := []string{
		node.Hostname,
		"-i", node.Hostname + ",",
		"-m", "ping",
		"-u", node.Username,
	}
	if node.Port > 0 {
		args = append(args, "-e", "ansible_port="+strconv.Itoa(node.Port))
	}
	args = append(args, a.sshArgs()...)

	return a.run(ctx, a.PingTimeout, a.AdHocBinary, args...)
}

func (a *AnsibleClient) sshArgs() []string {
	if a.SSHCommonArgs == "" {
		return nil
	}
	return []string{"--ssh-common-args=" + a.SSHCommonArgs}
}

// run executes name with a hard deadline. A non-zero exit is not an error:
// it is reported through CommandResult.ExitCode.
func (a *AnsibleClient) run(ctx context.Context, timeout time.Duration, name string, args ...string) (*CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(cmd.Environ(), "ANSIBLE_FORCE_COLOR=0")
	// ssh control masters may keep the pipes open after ansible is killed
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	result := &CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("%s exceeded %s: %w", name, timeout, ErrCommandTimeout)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s interrupted: %w", name, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}

	return result, nil
}

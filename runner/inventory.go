package runner

import (
	"fmt"
	"os"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"gopkg.in/yaml.v3"
)

// UngroupedName holds requested nodes that belong to none of the requested groups
const UngroupedName = "ungrouped"

// Host is one inventory host entry
type Host struct {
	AnsibleHost string `yaml:"ansible_host"`
	AnsibleUser string `yaml:"ansible_user"`
	AnsiblePort int    `yaml:"ansible_port"`
}

// HostGroup is a named collection of hosts
type HostGroup struct {
	Hosts map[string]Host `yaml:"hosts"`
}

// Inventory maps collection names to their hosts, in ansible's YAML layout
type Inventory map[string]HostGroup

type InventoryBuilder struct {
	dir string
}

func NewInventoryBuilder(dir string) *InventoryBuilder {
	return &InventoryBuilder{dir: dir}
}

// Compose assembles an inventory. Every group becomes a collection of its
// members; nodes not covered by any group go under "ungrouped". A group
// that already uses a collection name shares it instead of replacing it.
func (b *InventoryBuilder) Compose(nodes []entity.Node, groups []entity.NodeGroup) Inventory {
	inventory := Inventory{}
	covered := make(map[uint]bool)

	for _, group := range groups {
		collection := inventory.collection(group.Name)
		for _, node := range group.Nodes {
			collection.Hosts[node.Name] = hostFor(node)
			covered[node.ID] = true
		}
	}

	for _, node := range nodes {
		if covered[node.ID] {
			continue
		}
		inventory.collection(UngroupedName).Hosts[node.Name] = hostFor(node)
	}

	return inventory
}

func (inv Inventory) collection(name string) HostGroup {
	collection, ok := inv[name]
	if !ok {
		collection = HostGroup{Hosts: make(map[string]Host)}
		inv[name] = collection
	}
	return collection
}

// Build writes the composed inventory to a new file in the builder's
// directory and returns its path. Removing the file is up to the caller.
func (b *InventoryBuilder) Build(nodes []entity.Node, groups []entity.NodeGroup) (string, error) {
	data, err := yaml.Marshal(b.Compose(nodes, groups))
	if err != nil {
		return "", fmt.Errorf("failed to encode inventory: %w", err)
	}

	file, err := os.CreateTemp(b.dir, "inventory-*.yml")
	if err != nil {
		return "", fmt.Errorf("failed to create inventory file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write inventory file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to close inventory file: %w", err)
	}

	return file.Name(), nil
}

func hostFor(node entity.Node) Host {
	return Host{
		AnsibleHost: node.Hostname,
		AnsibleUser: node.Username,
		AnsiblePort: node.Port,
	}
}

package entity

// Playbook describes a playbook file found in the playbooks directory
type Playbook struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

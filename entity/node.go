package entity

import "time"

// NodeStatus is the last known reachability of a node
type NodeStatus string

const (
	NodeStatusUnknown NodeStatus = "unknown"
	NodeStatusOnline  NodeStatus = "online"
	NodeStatusOffline NodeStatus = "offline"
	NodeStatusTimeout NodeStatus = "timeout"
	NodeStatusError   NodeStatus = "error"
)

// Node is a machine manageable through ansible
type Node struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Hostname    string     `json:"hostname" gorm:"type:varchar(255);not null"`
	Username    string     `json:"username" gorm:"type:varchar(100);not null"`
	Port        int        `json:"port" gorm:"not null;default:22"`
	Description string     `json:"description" gorm:"type:text"`
	Status      NodeStatus `json:"status" gorm:"type:varchar(20);not null;default:'unknown'"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;autoCreateTime"`

	Groups []NodeGroup `json:"groups,omitempty" gorm:"many2many:node_group_members;"`
}

package entity

import "time"

type NodeGroup struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;autoCreateTime"`

	Nodes []Node `json:"nodes,omitempty" gorm:"many2many:node_group_members;"`
}

package repository

import (
	"errors"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NodeRepository struct {
	db *gorm.DB
}

func NewNodeRepository(db *gorm.DB) *NodeRepository {
	return &NodeRepository{db: db}
}

func (r *NodeRepository) Create(node *entity.Node) error {
	if node == nil {
		return errors.New("node cannot be nil")
	}
	if node.Status == "" {
		node.Status = entity.NodeStatusUnknown
	}
	return r.db.Omit(clause.Associations).Create(node).Error
}

func (r *NodeRepository) FindByID(id uint) (*entity.Node, error) {
	var node entity.Node
	err := r.db.Preload("Groups").First(&node, id).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// FindByIDs returns the nodes that exist among ids; unknown ids are skipped
func (r *NodeRepository) FindByIDs(ids []uint) ([]entity.Node, error) {
	if len(ids) == 0 {
		return []entity.Node{}, nil
	}
	var nodes []entity.Node
	err := r.db.Where("id IN ?", ids).Order("id").Find(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *NodeRepository) List() ([]entity.Node, error) {
	var nodes []entity.Node
	err := r.db.Preload("Groups").Order("id").Find(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *NodeRepository) Update(node *entity.Node) error {
	if node == nil {
		return errors.New("node cannot be nil")
	}
	return r.db.Omit(clause.Associations).Save(node).Error
}

// Delete removes the node and its group memberships; the groups stay
func (r *NodeRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		node := entity.Node{ID: id}
		if err := tx.Model(&node).Association("Groups").Clear(); err != nil {
			return err
		}
		result := tx.Delete(&entity.Node{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *NodeRepository) ExistsByName(name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entity.Node{}).Where("name = ? AND id <> ?", name, excludeID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateStatuses writes all reachability results in a single transaction
func (r *NodeRepository) UpdateStatuses(statuses map[uint]entity.NodeStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for id, status := range statuses {
			err := tx.Model(&entity.Node{}).Where("id = ?", id).Update("status", status).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

package repository

import (
	"errors"

	"github.com/tnqbao/gau-playbook-orchestrator/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create inserts the group with memberships for the existing nodes among nodeIDs
func (r *GroupRepository) Create(group *entity.NodeGroup, nodeIDs []uint) error {
	if group == nil {
		return errors.New("group cannot be nil")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		nodes, err := NewNodeRepository(tx).FindByIDs(nodeIDs)
		if err != nil {
			return err
		}
		group.Nodes = nodes
		return tx.Omit("Nodes.*").Create(group).Error
	})
}

func (r *GroupRepository) FindByID(id uint) (*entity.NodeGroup, error) {
	var group entity.NodeGroup
	err := r.db.Preload("Nodes").First(&group, id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByIDs returns the groups that exist among ids with their members loaded
func (r *GroupRepository) FindByIDs(ids []uint) ([]entity.NodeGroup, error) {
	if len(ids) == 0 {
		return []entity.NodeGroup{}, nil
	}
	var groups []entity.NodeGroup
	err := r.db.Preload("Nodes", func(db *gorm.DB) *gorm.DB {
		return db.Order("nodes.id")
	}).Where("id IN ?", ids).Order("id").Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *GroupRepository) List() ([]entity.NodeGroup, error) {
	var groups []entity.NodeGroup
	err := r.db.Preload("Nodes").Order("id").Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Update saves name and description; memberships are replaced only when
// nodeIDs is non-nil
func (r *GroupRepository) Update(group *entity.NodeGroup, nodeIDs *[]uint) error {
	if group == nil {
		return errors.New("group cannot be nil")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(group).Error; err != nil {
			return err
		}
		if nodeIDs == nil {
			return nil
		}

		nodes, err := NewNodeRepository(tx).FindByIDs(*nodeIDs)
		if err != nil {
			return err
		}
		association := tx.Model(group).Omit("Nodes.*").Association("Nodes")
		if len(nodes) == 0 {
			if err := association.Clear(); err != nil {
				return err
			}
		} else if err := association.Replace(nodes); err != nil {
			return err
		}
		group.Nodes = nodes
		return nil
	})
}

// Delete removes the group and its memberships; member nodes are untouched
func (r *GroupRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		group := entity.NodeGroup{ID: id}
		if err := tx.Model(&group).Association("Nodes").Clear(); err != nil {
			return err
		}
		result := tx.Delete(&entity.NodeGroup{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GroupRepository) ExistsByName(name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entity.NodeGroup{}).Where("name = ? AND id <> ?", name, excludeID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

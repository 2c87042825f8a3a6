package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ispadmin-io/ispadmin/services/subscription/db/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPoolExhausted = errors.New("address pool exhausted")

// AssignFromPool leases the first free slot of the pool. The slot row is
// locked for the duration of the transaction so two sagas cannot grab the
// same address.
func (db Database) AssignFromPool(subscriptionID uint, poolID string) (*model.AddressAssignment, error) {
	var assignment *model.AddressAssignment

	err := db.Orm.Transaction(func(tx *gorm.DB) error {
		var slot model.PoolAddress
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("pool_id = ? AND assignment_id IS NULL", poolID).
			Order("id").
			First(&slot).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrPoolExhausted, poolID)
			}
			return err
		}

		assignment = &model.AddressAssignment{
			ID:             uuid.New().String(),
			SubscriptionID: subscriptionID,
			PoolID:         poolID,
			Address:        slot.Address,
		}
		if err := tx.Create(assignment).Error; err != nil {
			return err
		}

		return tx.Model(&model.PoolAddress{}).Where("id = ?", slot.ID).
			Update("assignment_id", assignment.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// ReleaseAssignment frees the pool slot and marks the assignment released.
// Releasing an unknown or already-released assignment is a no-op, because
// compensation may run more than once in degraded scenarios.
func (db Database) ReleaseAssignment(assignmentID string) error {
	if assignmentID == "" {
		return nil
	}

	return db.Orm.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&model.AddressAssignment{}).
			Where("id = ? AND released = false", assignmentID).
			Updates(map[string]any{"released": true, "released_at": &now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		return tx.Model(&model.PoolAddress{}).
			Where("assignment_id = ?", assignmentID).
			Update("assignment_id", nil).Error
	})
}

func (db Database) GetAssignment(assignmentID string) (*model.AddressAssignment, error) {
	var assignment model.AddressAssignment
	if err := db.Orm.Model(&model.AddressAssignment{}).Where("id = ?", assignmentID).First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

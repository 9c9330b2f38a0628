// Package store holds the persisted vehicle collection. The Available flag
// on a vehicle is derived state: the reconciliation service overwrites the
// whole list on every derivation pass.
package store

import (
	"fmt"

	"gorm.io/gorm"

	"vehicle-rental-api/models"
)

// VehicleStore is the surface the reconciliation service and the handlers
// consume.
type VehicleStore interface {
	List() ([]models.Vehicle, error)
	Get(id string) (models.Vehicle, error)
	Create(v *models.Vehicle) error
	Update(v *models.Vehicle) error
	Delete(id string) error
	SaveAll(vehicles []models.Vehicle) error
}

type GormVehicleStore struct {
	db *gorm.DB
}

func NewVehicleStore(db *gorm.DB) *GormVehicleStore {
	return &GormVehicleStore{db: db}
}

func (s *GormVehicleStore) List() ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := s.db.Order("created_at desc").Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

func (s *GormVehicleStore) Get(id string) (models.Vehicle, error) {
	var v models.Vehicle
	if err := s.db.First(&v, "id = ?", id).Error; err != nil {
		return models.Vehicle{}, err
	}
	return v, nil
}

func (s *GormVehicleStore) Create(v *models.Vehicle) error {
	return s.db.Create(v).Error
}

func (s *GormVehicleStore) Update(v *models.Vehicle) error {
	return s.db.Save(v).Error
}

func (s *GormVehicleStore) Delete(id string) error {
	return s.db.Delete(&models.Vehicle{}, "id = ?", id).Error
}

// SaveAll overwrites the persisted availability state with the derived one.
func (s *GormVehicleStore) SaveAll(vehicles []models.Vehicle) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range vehicles {
			if err := tx.Save(&vehicles[i]).Error; err != nil {
				return fmt.Errorf("save vehicle %s: %w", vehicles[i].ID, err)
			}
		}
		return nil
	})
}

// Package store persists monitored devices and their sample history with gorm.
package store

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/talkincode/netmon/internal/domain"
)

// DeviceStore is the registry of monitored devices.
type DeviceStore interface {
	// Add validates and inserts a device, returning its new id
	Add(ctx context.Context, d *domain.Device) (int64, error)

	// List returns all devices, most recently created first
	List(ctx context.Context) ([]domain.Device, error)

	// Get retrieves a device by id
	Get(ctx context.Context, id int64) (*domain.Device, error)

	// Update replaces every mutable field of an existing device
	Update(ctx context.Context, d *domain.Device) error

	// Delete removes a device together with its sample history
	Delete(ctx context.Context, id int64) error

	// Count returns the number of registered devices
	Count(ctx context.Context) (int64, error)
}

// GormDeviceStore is the GORM implementation of DeviceStore
type GormDeviceStore struct {
	db   *gorm.DB
	node *snowflake.Node
}

// NewGormDeviceStore creates a device store; node generates device ids.
func NewGormDeviceStore(db *gorm.DB, node *snowflake.Node) *GormDeviceStore {
	return &GormDeviceStore{db: db, node: node}
}

func (r *GormDeviceStore) Add(ctx context.Context, d *domain.Device) (int64, error) {
	d.Tags = domain.NormalizeTags(d.Tags)
	if err := d.Validate(); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	d.ID = r.node.Generate().Int64()
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return 0, errors.Wrap(err, "insert device")
	}
	return d.ID, nil
}

func (r *GormDeviceStore) List(ctx context.Context) ([]domain.Device, error) {
	devices := make([]domain.Device, 0)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&devices).Error
	if err != nil {
		return nil, errors.Wrap(err, "list devices")
	}
	return devices, nil
}

func (r *GormDeviceStore) Get(ctx context.Context, id int64) (*domain.Device, error) {
	var d domain.Device
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFound("device", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query device")
	}
	return &d, nil
}

func (r *GormDeviceStore) Update(ctx context.Context, d *domain.Device) error {
	d.Tags = domain.NormalizeTags(d.Tags)
	if err := d.Validate(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Device
		err := tx.Where("id = ?", d.ID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewNotFound("device", d.ID)
		}
		if err != nil {
			return errors.Wrap(err, "query device")
		}

		d.CreatedAt = current.CreatedAt
		d.UpdatedAt = time.Now().UTC()
		err = tx.Model(&domain.Device{}).Where("id = ?", d.ID).Updates(map[string]interface{}{
			"ip_address":              d.IPAddress,
			"description":             d.Description,
			"tags":                    d.Tags,
			"device_type":             d.DeviceType,
			"response_time_threshold": d.ResponseTimeThreshold,
			"packet_loss_threshold":   d.PacketLossThreshold,
			"jitter_threshold":        d.JitterThreshold,
			"updated_at":              d.UpdatedAt,
		}).Error
		return errors.Wrap(err, "update device")
	})
}

// Delete removes the history rows before the device row inside one
// transaction, so no orphaned sample is ever observable even where the
// engine does not enforce the cascade constraint.
func (r *GormDeviceStore) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Device{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return errors.Wrap(err, "query device")
		}
		if count == 0 {
			return domain.NewNotFound("device", id)
		}
		if err := tx.Where("device_id = ?", id).Delete(&domain.Sample{}).Error; err != nil {
			return errors.Wrap(err, "delete device history")
		}
		return errors.Wrap(tx.Where("id = ?", id).Delete(&domain.Device{}).Error, "delete device")
	})
}

func (r *GormDeviceStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Device{}).Count(&count).Error
	return count, errors.Wrap(err, "count devices")
}

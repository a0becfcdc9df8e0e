package store

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talkincode/netmon/internal/domain"
)

// SampleStore is the append-only time-series history of probe results.
type SampleStore interface {
	// Append stamps and inserts a sample for an existing device
	Append(ctx context.Context, s *domain.Sample) error

	// History returns samples newest first; limit <= 0 means unlimited
	History(ctx context.Context, deviceID int64, limit int) ([]domain.Sample, error)

	// Range returns samples taken at or after since, oldest first
	Range(ctx context.Context, deviceID int64, since time.Time) ([]domain.Sample, error)

	// Trends returns hourly buckets over the trailing window, newest first
	Trends(ctx context.Context, deviceID int64, windowHours int) ([]domain.TrendBucket, error)

	// Purge deletes every sample older than before
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// SampleStoreOption configures a GormSampleStore.
type SampleStoreOption func(*GormSampleStore)

// WithClock overrides the clock used to stamp samples and anchor trend windows.
func WithClock(now func() time.Time) SampleStoreOption {
	return func(s *GormSampleStore) {
		s.now = now
	}
}

// GormSampleStore is the GORM implementation of SampleStore
type GormSampleStore struct {
	db  *gorm.DB
	now func() time.Time

	mu   sync.Mutex
	last map[int64]time.Time
}

// NewGormSampleStore creates a sample store.
func NewGormSampleStore(db *gorm.DB, opts ...SampleStoreOption) *GormSampleStore {
	s := &GormSampleStore{
		db:   db,
		now:  time.Now,
		last: make(map[int64]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GormSampleStore) Append(ctx context.Context, sample *domain.Sample) error {
	if sample.PacketLoss < 0 || sample.PacketLoss > 100 {
		return domain.NewValidation("packet_loss", "must be within [0, 100]")
	}
	if sample.ThresholdViolations == nil {
		sample.ThresholdViolations = domain.StringList{}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Device{}).Where("id = ?", sample.DeviceID).Count(&count).Error; err != nil {
			return errors.Wrap(err, "query device")
		}
		if count == 0 {
			s.forget(sample.DeviceID)
			return domain.NewNotFound("device", sample.DeviceID)
		}

		ts, err := s.stamp(tx, sample.DeviceID)
		if err != nil {
			return err
		}
		sample.ID = 0
		sample.Timestamp = ts
		return errors.Wrap(tx.Omit(clause.Associations).Create(sample).Error, "insert sample")
	})
}

// stamp returns the insertion timestamp for a device, strictly after the
// previous one even if the wall clock stalls or steps backwards. The last
// stored timestamp is read once per device to survive restarts.
func (s *GormSampleStore) stamp(tx *gorm.DB, deviceID int64) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.last[deviceID]
	if !ok {
		var latest []domain.Sample
		err := tx.Select("timestamp").
			Where("device_id = ?", deviceID).
			Order("timestamp DESC").
			Limit(1).
			Find(&latest).Error
		if err != nil {
			return time.Time{}, errors.Wrap(err, "query latest sample")
		}
		if len(latest) > 0 {
			last, ok = latest[0].Timestamp.UTC(), true
		}
	}

	// postgres keeps microseconds
	ts := s.now().UTC().Truncate(time.Microsecond)
	if ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	s.last[deviceID] = ts
	return ts, nil
}

func (s *GormSampleStore) History(ctx context.Context, deviceID int64, limit int) ([]domain.Sample, error) {
	samples := make([]domain.Sample, 0)
	query := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&samples).Error; err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	return samples, nil
}

func (s *GormSampleStore) Range(ctx context.Context, deviceID int64, since time.Time) ([]domain.Sample, error) {
	samples := make([]domain.Sample, 0)
	query := s.db.WithContext(ctx).Where("device_id = ?", deviceID)
	if !since.IsZero() {
		query = query.Where("timestamp >= ?", since.UTC())
	}
	if err := query.Order("timestamp ASC").Order("id ASC").Find(&samples).Error; err != nil {
		return nil, errors.Wrap(err, "query history range")
	}
	return samples, nil
}

func (s *GormSampleStore) Trends(ctx context.Context, deviceID int64, windowHours int) ([]domain.TrendBucket, error) {
	if windowHours <= 0 {
		return nil, domain.NewValidation("hours", "must be positive")
	}

	since := s.now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	var samples []domain.Sample
	err := s.db.WithContext(ctx).
		Select("status", "response_time", "jitter", "packet_loss", "timestamp").
		Where("device_id = ? AND timestamp >= ?", deviceID, since).
		Order("timestamp DESC").
		Find(&samples).Error
	if err != nil {
		return nil, errors.Wrap(err, "query trends")
	}
	return BucketByHour(samples), nil
}

// Purge deletes every sample older than before and drops the cached
// timestamps of devices that no longer exist.
func (s *GormSampleStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("timestamp < ?", before.UTC()).Delete(&domain.Sample{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "purge history")
	}

	var ids []int64
	if err := s.db.WithContext(ctx).Model(&domain.Device{}).Pluck("id", &ids).Error; err != nil {
		return result.RowsAffected, errors.Wrap(err, "list device ids")
	}
	live := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}
	s.mu.Lock()
	for id := range s.last {
		if _, ok := live[id]; !ok {
			delete(s.last, id)
		}
	}
	s.mu.Unlock()
	return result.RowsAffected, nil
}

func (s *GormSampleStore) forget(deviceID int64) {
	s.mu.Lock()
	delete(s.last, deviceID)
	s.mu.Unlock()
}

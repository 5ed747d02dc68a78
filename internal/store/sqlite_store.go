package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// paramSnapshot is the gorm model backing parameter blob persistence. Only
// the newest row per Key is ever read; older rows are kept for audit.
type paramSnapshot struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Key       string    `gorm:"column:key;type:varchar(128);index"`
	Blob      []byte    `gorm:"column:blob;type:blob"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (paramSnapshot) TableName() string { return "shgat_param_snapshot" }

// trainingExampleRow is the gorm model backing persisted training examples.
type trainingExampleRow struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Key             string    `gorm:"column:key;type:varchar(128);index"`
	ExampleID       string    `gorm:"column:example_id;type:varchar(128);uniqueIndex:idx_key_example"`
	IntentEmbedding []byte    `gorm:"column:intent_embedding;type:blob"`
	CapabilityID    string    `gorm:"column:capability_id;type:varchar(128)"`
	Label           float64   `gorm:"column:label"`
	Priority        float64   `gorm:"column:priority;index"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (trainingExampleRow) TableName() string { return "shgat_training_example" }

// SQLiteStore implements ParamStore and ExampleStore on top of an embedded
// sqlite database via gorm, the default persistence backend for a single
// host process.
type SQLiteStore struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSQLiteStore opens (creating if absent) a sqlite database at path and
// migrates its schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite db: %w", err)
	}
	if err := db.AutoMigrate(&paramSnapshot{}, &trainingExampleRow{}); err != nil {
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}
	return &SQLiteStore{db: db, rng: rand.New(rand.NewSource(1))}, nil
}

func (s *SQLiteStore) SaveParams(ctx context.Context, key string, blob []byte) error {
	row := paramSnapshot{Key: key, Blob: blob}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store: save params: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadParams(ctx context.Context, key string) ([]byte, error) {
	var row paramSnapshot
	err := s.db.WithContext(ctx).
		Where("key = ?", key).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: load params: %w", err)
	}
	return row.Blob, nil
}

func (s *SQLiteStore) SaveExample(ctx context.Context, key string, ex shgat.TrainingExample, priority float64) error {
	embedding, err := json.Marshal(ex.IntentEmbedding)
	if err != nil {
		return fmt.Errorf("store: marshal intent embedding: %w", err)
	}
	row := trainingExampleRow{
		Key:             key,
		ExampleID:       ex.ID,
		IntentEmbedding: embedding,
		CapabilityID:    ex.CapabilityID,
		Label:           ex.Label,
		Priority:        priority,
	}
	err = s.db.WithContext(ctx).
		Where("key = ? AND example_id = ?", key, ex.ID).
		Assign(row).
		FirstOrCreate(&trainingExampleRow{}).Error
	if err != nil {
		return fmt.Errorf("store: save example: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FetchPrioritySample(ctx context.Context, key string, n int) ([]shgat.TrainingExample, error) {
	if n <= 0 {
		return nil, nil
	}
	var rows []trainingExampleRow
	err := s.db.WithContext(ctx).
		Where("key = ?", key).
		Order("priority DESC").
		Limit(n * 4).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: fetch priority sample: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	total := 0.0
	for _, r := range rows {
		total += r.Priority
	}
	if total <= 0 {
		total = float64(len(rows))
	}

	out := make([]shgat.TrainingExample, 0, n)
	for i := 0; i < n; i++ {
		target := s.rng.Float64() * total
		acc := 0.0
		chosen := rows[len(rows)-1]
		for _, r := range rows {
			w := r.Priority
			if total == float64(len(rows)) {
				w = 1
			}
			acc += w
			if acc >= target {
				chosen = r
				break
			}
		}
		ex, err := rowToExample(chosen)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func (s *SQLiteStore) UpdatePriority(ctx context.Context, key string, exampleID string, priority float64) error {
	result := s.db.WithContext(ctx).
		Model(&trainingExampleRow{}).
		Where("key = ? AND example_id = ?", key, exampleID).
		Update("priority", priority)
	if result.Error != nil {
		return fmt.Errorf("store: update priority: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func rowToExample(row trainingExampleRow) (shgat.TrainingExample, error) {
	var embedding []float64
	if err := json.Unmarshal(row.IntentEmbedding, &embedding); err != nil {
		return shgat.TrainingExample{}, fmt.Errorf("store: unmarshal intent embedding: %w", err)
	}
	return shgat.TrainingExample{
		ID:              row.ExampleID,
		IntentEmbedding: embedding,
		CapabilityID:    row.CapabilityID,
		Label:           row.Label,
	}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

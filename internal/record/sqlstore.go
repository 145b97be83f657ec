package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/audiolibrelab/voicejournal/internal/observe"
)

type recordRow struct {
	RecordID            int64      `gorm:"column:record_id;primaryKey;autoIncrement"`
	Title               string     `gorm:"not null"`
	Mood                string     `gorm:"size:16;not null"`
	RecordedAt          time.Time  `gorm:"index;not null"`
	Note                *string
	AudioFilePath       string     `gorm:"not null"`
	AudioPlaybackLength int64      `gorm:"not null"` // milliseconds
	AudioAmplitudes     Amplitudes `gorm:"type:text;not null"`
	Topics              []topicRow `gorm:"many2many:record_topic_cross_ref;foreignKey:RecordID;joinForeignKey:RecordID;references:Topic;joinReferences:Topic"`
}

func (recordRow) TableName() string { return "records" }

type topicRow struct {
	Topic string `gorm:"primaryKey"`
}

func (topicRow) TableName() string { return "topics" }

// SQLStore is a Store backed by a SQLite database.
type SQLStore struct {
	db      *gorm.DB
	changes *observe.Value[uint64]
}

// OpenSQLStore opens (creating if needed) the database at path and migrates it.
func OpenSQLStore(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&topicRow{}, &recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Debug("Record store opened", "path", path)
	return &SQLStore{db: db, changes: observe.NewValue[uint64](0)}, nil
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertRecord saves r with its topics, creating unknown topics, and returns
// the new id.
func (s *SQLStore) InsertRecord(ctx context.Context, r Record) (int64, error) {
	row := toRow(r)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(row.Topics) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row.Topics).Error; err != nil {
				return fmt.Errorf("failed to upsert topics: %w", err)
			}
		}
		if err := tx.Omit("Topics.*").Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.changes.Update(func(v uint64) uint64 { return v + 1 })
	return row.RecordID, nil
}

// GetRecord returns the record with id or ErrNotFound.
func (s *SQLStore) GetRecord(ctx context.Context, id int64) (Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Preload("Topics", orderTopics).First(&row, "record_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load record %d: %w", id, err)
	}
	return fromRow(row), nil
}

// ListRecords returns all records, newest first.
func (s *SQLStore) ListRecords(ctx context.Context) ([]Record, error) {
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Preload("Topics", orderTopics).
		Order("recorded_at DESC").Order("record_id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = fromRow(row)
	}
	return records, nil
}

// ListTopics returns every topic, ascending.
func (s *SQLStore) ListTopics(ctx context.Context) ([]string, error) {
	return s.queryTopics(ctx, "")
}

func (s *SQLStore) ObserveRecords(ctx context.Context) <-chan []Record {
	return watch(ctx, s.changes, s.ListRecords)
}

func (s *SQLStore) ObserveTopics(ctx context.Context) <-chan []string {
	return watch(ctx, s.changes, s.ListTopics)
}

func (s *SQLStore) SearchTopics(ctx context.Context, query string) <-chan []string {
	return watch(ctx, s.changes, func(ctx context.Context) ([]string, error) {
		return s.queryTopics(ctx, query)
	})
}

func (s *SQLStore) queryTopics(ctx context.Context, query string) ([]string, error) {
	q := s.db.WithContext(ctx).Model(&topicRow{})
	if query != "" {
		q = q.Where(`topic LIKE ? ESCAPE '\'`, "%"+escapeLike(query)+"%")
	}

	var topics []string
	if err := q.Order("topic ASC").Pluck("topic", &topics).Error; err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	return topics, nil
}

func orderTopics(db *gorm.DB) *gorm.DB {
	return db.Order("topic ASC")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// watch re-runs query whenever the store changes and emits the result until
// ctx is done.
func watch[T any](ctx context.Context, changes *observe.Value[uint64], query func(context.Context) (T, error)) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for range changes.Subscribe(ctx) {
			v, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("Store query failed", "error", err)
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func toRow(r Record) recordRow {
	topics := make([]topicRow, 0, len(r.Topics))
	seen := make(map[string]bool, len(r.Topics))
	for _, t := range r.Topics {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, topicRow{Topic: t})
	}
	return recordRow{
		RecordID:            r.ID,
		Title:               r.Title,
		Mood:                string(r.Mood),
		RecordedAt:          r.RecordedAt.UTC(),
		Note:                r.Note,
		AudioFilePath:       r.AudioFilePath,
		AudioPlaybackLength: r.AudioPlaybackLength.Milliseconds(),
		AudioAmplitudes:     Amplitudes(r.AudioAmplitudes),
		Topics:              topics,
	}
}

func fromRow(row recordRow) Record {
	topics := make([]string, len(row.Topics))
	for i, t := range row.Topics {
		topics[i] = t.Topic
	}
	mood, err := ParseMood(row.Mood)
	if err != nil {
		slog.Warn("Record has unknown mood, using neutral", "record", row.RecordID, "mood", row.Mood)
		mood = MoodNeutral
	}
	return Record{
		ID:                  row.RecordID,
		Mood:                mood,
		Title:               row.Title,
		Note:                row.Note,
		Topics:              topics,
		AudioFilePath:       row.AudioFilePath,
		AudioPlaybackLength: time.Duration(row.AudioPlaybackLength) * time.Millisecond,
		AudioAmplitudes:     []float64(row.AudioAmplitudes),
		RecordedAt:          row.RecordedAt,
	}
}

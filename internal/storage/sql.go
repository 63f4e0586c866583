package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// KVRecord is one named record in the kv_records table.
type KVRecord struct {
	Name      string `gorm:"primaryKey;size:191"`
	Value     []byte
	UpdatedAt time.Time
}

func (KVRecord) TableName() string {
	return "kv_records"
}

// SQLStore keeps records in a relational table through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQL connects with the postgres or mysql dialect and migrates kv_records.
func OpenSQL(driver Driver, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.New(mysql.Config{DSN: dsn, DefaultStringSize: 191})
	default:
		return nil, fmt.Errorf("storage: %q is not a sql driver", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewSQLStore(db)
}

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&KVRecord{}); err != nil {
		return nil, fmt.Errorf("migrate kv_records: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, name string) ([]byte, error) {
	var record KVRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, name string, value []byte) error {
	record := KVRecord{Name: name, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Where("name = ?", name).Delete(&KVRecord{}).Error
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

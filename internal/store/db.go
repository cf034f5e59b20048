package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when an assessment ID has no row.
var ErrNotFound = errors.New("assessment not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Assessment{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAssessment inserts a new assessment row.
func (d *Database) SaveAssessment(a *Assessment) error {
	if d == nil {
		return errors.New("database is nil")
	}
	if a == nil {
		return errors.New("assessment is nil")
	}
	if a.ID == "" {
		return errors.New("assessment id is empty")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(a).Error
}

// AssessmentQuery filters and pages ListAssessments.
type AssessmentQuery struct {
	Kind         string
	DegradedOnly bool
	Offset       int
	Limit        int
}

// ListAssessments returns newest-first assessments and the total matching count.
func (d *Database) ListAssessments(opts AssessmentQuery) ([]Assessment, int64, error) {
	if d == nil {
		return nil, 0, errors.New("database is nil")
	}
	base := d.gorm.Model(&Assessment{})
	if opts.Kind != "" {
		base = base.Where("kind = ?", opts.Kind)
	}
	if opts.DegradedOnly {
		base = base.Where("degraded = ?", true)
	}
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := base.Order("created_at DESC").Order("id ASC").Offset(opts.Offset)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var rows []Assessment
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountAssessments returns the number of stored assessments.
func (d *Database) CountAssessments() (int64, error) {
	var count int64
	if err := d.gorm.Model(&Assessment{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetAssessment fetches one assessment by ID.
func (d *Database) GetAssessment(id string) (*Assessment, error) {
	var a Assessment
	err := d.gorm.Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_assessments_kind_created ON assessments(kind, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

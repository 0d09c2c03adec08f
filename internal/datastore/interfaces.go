// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecotrack/emissions-api/internal/conf"
	"github.com/ecotrack/emissions-api/internal/observability/metrics"
)

// Interface abstracts the underlying database implementation and defines the
// operations available on the emission record store.
type Interface interface {
	Open() error
	Close() error
	Save(emission *Emission) error
	Get(id string) (Emission, error)
	Update(emission *Emission) error
	Delete(id string) error
	List(filter *EmissionFilter, ordering []string, limit, offset int) ([]Emission, error)
	Count(filter *EmissionFilter) (int64, error)
	TotalEmissions(filter *EmissionFilter) (decimal.Decimal, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB
	Metrics *metrics.DatastoreMetrics // optional, nil-safe
}

// New creates a new datastore instance based on the enabled database backend.
func New(settings *conf.Settings, dsMetrics *metrics.DatastoreMetrics) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: DataStore{Metrics: dsMetrics},
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: DataStore{Metrics: dsMetrics},
			Settings:  settings,
		}
	default:
		return nil
	}
}

// Save stores a new emission record in the database. Constraint violations
// are translated into field level validation errors.
func (ds *DataStore) Save(emission *Emission) error {
	start := time.Now()
	err := ds.DB.Create(emission).Error
	ds.recordOperation("save", start, err)
	if err != nil {
		return translateConstraintError(err, "save")
	}
	ds.updateRecordCount()
	return nil
}

// Get retrieves an emission record by its ID.
func (ds *DataStore) Get(id string) (Emission, error) {
	recordID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return Emission{}, notFoundError("emission", id)
	}

	var emission Emission
	start := time.Now()
	err = ds.DB.First(&emission, recordID).Error
	ds.recordOperation("get", start, err)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Emission{}, notFoundError("emission", id)
		}
		return Emission{}, dbError(err, "get", "id", id)
	}
	return emission, nil
}

// Update persists changes to an existing emission record. All fields of the
// struct are written, so callers must pass a fully populated record.
func (ds *DataStore) Update(emission *Emission) error {
	start := time.Now()
	err := ds.DB.Save(emission).Error
	ds.recordOperation("update", start, err)
	if err != nil {
		return translateConstraintError(err, "update")
	}
	return nil
}

// Delete removes an emission record from the database.
func (ds *DataStore) Delete(id string) error {
	recordID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return notFoundError("emission", id)
	}

	start := time.Now()
	result := ds.DB.Delete(&Emission{}, recordID)
	ds.recordOperation("delete", start, result.Error)
	if result.Error != nil {
		return dbError(result.Error, "delete", "id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError("emission", id)
	}
	ds.updateRecordCount()
	return nil
}

// List retrieves emission records matching the filter, ordered and paginated.
// Ordering terms must come from ParseOrdering, which whitelists the columns.
func (ds *DataStore) List(filter *EmissionFilter, ordering []string, limit, offset int) ([]Emission, error) {
	query := applyPredicates(ds.DB.Model(&Emission{}), filter.Predicates())
	for _, term := range ordering {
		query = query.Order(term)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var emissions []Emission
	start := time.Now()
	err := query.Find(&emissions).Error
	ds.recordOperation("list", start, err)
	if err != nil {
		return nil, dbError(err, "list")
	}
	return emissions, nil
}

// Count returns the number of emission records matching the filter.
func (ds *DataStore) Count(filter *EmissionFilter) (int64, error) {
	query := applyPredicates(ds.DB.Model(&Emission{}), filter.Predicates())

	var count int64
	start := time.Now()
	err := query.Count(&count).Error
	ds.recordOperation("count", start, err)
	if err != nil {
		return 0, dbError(err, "count")
	}
	return count, nil
}

// TotalEmissions sums the emissions quantity over all records matching the
// filter. An empty result set yields decimal zero, not an error.
func (ds *DataStore) TotalEmissions(filter *EmissionFilter) (decimal.Decimal, error) {
	query := applyPredicates(ds.DB.Model(&Emission{}), filter.Predicates())

	var result struct {
		Total decimal.Decimal
	}
	start := time.Now()
	err := query.Select("COALESCE(SUM(emissions), 0) AS total").Scan(&result).Error
	ds.recordOperation("total_emissions", start, err)
	if err != nil {
		return decimal.Zero, dbError(err, "total_emissions")
	}
	return result.Total, nil
}

// recordOperation reports a datastore operation to the metrics collector.
func (ds *DataStore) recordOperation(operation string, start time.Time, err error) {
	if ds.Metrics != nil {
		ds.Metrics.RecordOperation(operation, time.Since(start), err)
	}
}

// updateRecordCount refreshes the record count gauge after writes.
func (ds *DataStore) updateRecordCount() {
	if ds.Metrics == nil {
		return
	}
	var count int64
	if err := ds.DB.Model(&Emission{}).Count(&count).Error; err == nil {
		ds.Metrics.SetRecordCount(count)
	}
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Emission{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}

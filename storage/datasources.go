package storage

import (
	"context"
	"database/sql"
	"fmt"

	"commgraph/core"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DataSourceStore persists the data sources added to a case. A device may
// contribute several data sources (multiple images of one phone), so
// device-scoped queries resolve a device id to the set of data source
// object ids first.
type DataSourceStore struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

func NewDataSourceStore(sqlite *SQLite, logger *zap.SugaredLogger) *DataSourceStore {
	return &DataSourceStore{sqlite: sqlite, logger: logger}
}

// AddDataSource registers a data source. An empty deviceID gets a
// generated one so device-scoped filtering still works.
func (s *DataSourceStore) AddDataSource(ctx context.Context, deviceID, name string) (*core.DataSource, error) {
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	var objID int64
	err := s.sqlite.WithTransaction(func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO data_sources (device_id, name) VALUES (?, ?)`,
			deviceID, name)
		if err != nil {
			return err
		}
		objID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add data source: %w", err)
	}

	s.logger.Debugf("added data source %q (device %s)", name, deviceID)

	return &core.DataSource{ObjID: objID, DeviceID: deviceID, Name: name}, nil
}

// DataSourceObjIDs returns the object ids of all data sources belonging
// to a device. Empty when the device is unknown.
func (s *DataSourceStore) DataSourceObjIDs(ctx context.Context, deviceID string) ([]int64, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT obj_id FROM data_sources WHERE device_id = ?`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get data sources for device %s: %w", deviceID, err)
	}
	defer rows.Close()

	var objIDs []int64
	for rows.Next() {
		var objID int64
		if err := rows.Scan(&objID); err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		objIDs = append(objIDs, objID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get data sources for device %s: %w", deviceID, err)
	}
	return objIDs, nil
}

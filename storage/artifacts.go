package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"commgraph/core"

	"go.uber.org/zap"
)

// ArtifactStore persists evidence artifacts and their attributes.
type ArtifactStore struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

func NewArtifactStore(sqlite *SQLite, logger *zap.SugaredLogger) *ArtifactStore {
	return &ArtifactStore{sqlite: sqlite, logger: logger}
}

// NewArtifact creates an artifact of the given type attached to source
// content and returns it with its assigned id.
func (s *ArtifactStore) NewArtifact(ctx context.Context, typeID int64, source core.Content) (*core.Artifact, error) {
	var artifactID int64
	err := s.sqlite.WithTransaction(func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO artifacts (obj_id, data_source_obj_id, artifact_type_id) VALUES (?, ?, ?)`,
			source.ObjID, source.DataSourceObjID, typeID)
		if err != nil {
			return err
		}
		artifactID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}

	return &core.Artifact{
		ID:              artifactID,
		ObjID:           source.ObjID,
		DataSourceObjID: source.DataSourceObjID,
		TypeID:          typeID,
	}, nil
}

// AddAttributes appends attributes to an existing artifact.
func (s *ArtifactStore) AddAttributes(ctx context.Context, artifactID int64, attrs []core.Attribute) error {
	if len(attrs) == 0 {
		return nil
	}
	err := s.sqlite.WithTransaction(func(tx *sql.Tx) error {
		for _, attr := range attrs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO artifact_attributes (artifact_id, attribute_type_id, source, value_text) VALUES (?, ?, ?, ?)`,
				artifactID, attr.TypeID, attr.Source, attr.ValueText); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add attributes to artifact %d: %w", artifactID, err)
	}
	return nil
}

// GetArtifact loads one artifact with its attributes, or nil when the id
// is unknown.
func (s *ArtifactStore) GetArtifact(ctx context.Context, artifactID int64) (*core.Artifact, error) {
	artifact := core.Artifact{ID: artifactID}
	err := s.sqlite.ReadDB.QueryRowContext(ctx,
		`SELECT obj_id, data_source_obj_id, artifact_type_id FROM artifacts WHERE artifact_id = ?`,
		artifactID).Scan(&artifact.ObjID, &artifact.DataSourceObjID, &artifact.TypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact %d: %w", artifactID, err)
	}

	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT attribute_type_id, source, value_text FROM artifact_attributes WHERE artifact_id = ?`,
		artifactID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attributes for artifact %d: %w", artifactID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var attr core.Attribute
		if err := rows.Scan(&attr.TypeID, &attr.Source, &attr.ValueText); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		artifact.Attributes = append(artifact.Attributes, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get attributes for artifact %d: %w", artifactID, err)
	}

	return &artifact, nil
}

// scanArtifactRows collects artifact rows selected as
// (artifact_id, obj_id, data_source_obj_id, artifact_type_id).
// Attributes are not loaded; bulk readers do not need them.
func scanArtifactRows(rows *sql.Rows) ([]core.Artifact, error) {
	defer rows.Close()

	var artifacts []core.Artifact
	for rows.Next() {
		var a core.Artifact
		if err := rows.Scan(&a.ID, &a.ObjID, &a.DataSourceObjID, &a.TypeID); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}
	return artifacts, nil
}

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pavelanni/gradereport/internal/model"
)

// Metadata keys describing the current dataset.
const (
	metaDatasetName = "dataset_name"
	metaImportedAt  = "imported_at"
	metaVersion     = "dataset_version"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetExportInfo stores the description of the current dataset.
func (s *Store) SetExportInfo(ctx context.Context, info model.ExportInfo) error {
	pairs := []struct{ k, v string }{
		{metaDatasetName, info.DatasetName},
		{metaImportedAt, info.ImportedAt},
		{metaVersion, info.Version},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(ctx, p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetExportInfo reads the description of the current dataset. Missing keys
// leave their fields empty.
func (s *Store) GetExportInfo(ctx context.Context) (model.ExportInfo, error) {
	var info model.ExportInfo
	var err error

	if info.DatasetName, err = s.GetMetadata(ctx, metaDatasetName); err != nil {
		return info, err
	}
	if info.ImportedAt, err = s.GetMetadata(ctx, metaImportedAt); err != nil {
		return info, err
	}
	if info.Version, err = s.GetMetadata(ctx, metaVersion); err != nil {
		return info, err
	}
	return info, nil
}

// GetImportedFileHash returns the hash recorded for path, "" if never imported.
func (s *Store) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the hash of an imported file.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO imported_files (path, hash, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, imported_at = excluded.imported_at`,
		path, hash, time.Now(),
	)
	return err
}

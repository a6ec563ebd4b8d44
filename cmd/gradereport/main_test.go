package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/gradereport/internal/cache"
	"github.com/pavelanni/gradereport/internal/model"
	"github.com/pavelanni/gradereport/internal/store"
)

const sampleDataset = `{
  "students": [{"id": 1, "first_name": "Jean", "last_name": "Dupont", "classes": [{"class_id": 1, "class_name": "Seconde A"}]}],
  "activities": [{"id": 10, "name": "Contrôle 1", "parts": [10, 10]}],
  "classes": [{"id": 1, "name": "Seconde A"}],
  "corrections": [{"id": 1, "student_id": 1, "activity_id": 10, "class_id": 1, "points_earned": [8, 7], "grade": 15}]
}`

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0o644))
	return path
}

func TestExportRequest(t *testing.T) {
	cmd := exportCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--primary", "Class", "--secondary", "student", "--format", "xlsx",
		"--activity", "3,1", "--activity", "2", "--class", "4", "--include-all", "--lang", "en",
	}))

	req, err := exportRequest(viperForCmd(cmd))
	require.NoError(t, err)
	assert.Equal(t, model.AxisClass, req.Primary)
	assert.Equal(t, model.AxisStudent, req.Secondary)
	assert.Equal(t, model.FormatXLSX, req.Format)
	assert.Equal(t, []int64{3, 1, 2}, req.ActivityIDs)
	require.NotNil(t, req.ClassID)
	assert.Equal(t, int64(4), *req.ClassID)
	assert.True(t, req.IncludeAll)
	assert.Equal(t, "en", req.Lang)
}

func TestExportRequestRejectsBadOptions(t *testing.T) {
	for name, args := range map[string][]string{
		"axis pair": {"--primary", "student", "--secondary", "student"},
		"format":    {"--primary", "class", "--format", "docx"},
		"activity":  {"--primary", "class", "--activity", "x"},
	} {
		t.Run(name, func(t *testing.T) {
			cmd := exportCmd()
			require.NoError(t, cmd.ParseFlags(args))
			_, err := exportRequest(viperForCmd(cmd))
			assert.Error(t, err)
		})
	}
}

func TestExportFromDatasetFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	cmd := exportCmd()
	cmd.SetArgs([]string{
		"--dataset", writeDataset(t), "--primary", "activity", "--format", "json", "--output", out,
	})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var export struct {
		Info    model.ExportInfo `json:"info"`
		Primary model.Axis       `json:"primary"`
		Groups  map[string]any   `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "dataset.json", export.Info.DatasetName)
	assert.Equal(t, model.AxisActivity, export.Primary)
	assert.Contains(t, export.Groups, "Contrôle 1")
}

func TestImportDatasets(t *testing.T) {
	db, err := store.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	path := writeDataset(t)
	require.NoError(t, importDatasets(testContext(t), db, []string{path}))

	count, err := db.CorrectionCount(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	info, err := db.GetExportInfo(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, path, info.DatasetName)

	assert.Error(t, importDatasets(testContext(t), db, []string{filepath.Join(t.TempDir(), "missing.json")}))
}

func TestSeedAdmin(t *testing.T) {
	db, err := store.New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, seedAdmin(testContext(t), db, ""))
	require.NoError(t, seedAdmin(testContext(t), db, "secret"))
	// A second call leaves the existing user alone.
	require.NoError(t, seedAdmin(testContext(t), db, ""))

	u, err := db.Authenticate(testContext(t), "admin", "secret")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, model.UserRoleAdmin, u.Role)
}

func TestOpenCache(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		kind string
		want any
	}{
		{"memory", &cache.Memory{}},
		{"off", cache.Noop{}},
		{"redis", &cache.Redis{}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			v := viper.New()
			v.Set("cache", tt.kind)
			v.Set("cache-size", 8)
			v.Set("redis-url", "redis://"+mr.Addr())

			c, closeFn, err := openCache(testContext(t), v)
			require.NoError(t, err)
			defer closeFn()
			assert.IsType(t, tt.want, c)

			require.NoError(t, c.Set(testContext(t), "k", []byte("v"), time.Minute))
		})
	}

	v := viper.New()
	v.Set("cache", "memcached")
	_, _, err := openCache(testContext(t), v)
	assert.Error(t, err)
}

// testContext returns a context that is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

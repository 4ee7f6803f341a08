package cmd

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/store"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadRoster(t *testing.T) {
	path := writeRoster(t, "\ufeffImage, Name ,SCHOOL,age,Language,title\n"+
		"scans/ana.png,Ana,826 Valencia,12,es,El verano\n"+
		"scans/luis.jpg, Luis ,,,,\n")

	rows, err := readRoster(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, rosterRow{
		Index:    1,
		Image:    "scans/ana.png",
		Language: internal.LangSpanish,
		Title:    "El verano",
		Metadata: internal.StudentMetadata{Name: "Ana", School: "826 Valencia", Age: 12},
	}, rows[0])

	assert.Equal(t, 2, rows[1].Index)
	assert.Equal(t, "Luis", rows[1].Metadata.Name)
	assert.Zero(t, rows[1].Metadata.Age, "a blank age stays unknown")
	assert.Empty(t, rows[1].Language)
}

func TestReadRoster_ShortRecords(t *testing.T) {
	path := writeRoster(t, "name,image,dob\nAna,ana.png\n")

	rows, err := readRoster(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ana.png", rows[0].Image)
	assert.Empty(t, rows[0].Metadata.DOB)
}

func TestReadRoster_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty file", "", "failed to read roster header"},
		{"no image column", "name,age\nAna,12\n", "no image column"},
		{"empty image", "image,name\n,Ana\n", "roster line 2: empty image path"},
		{"age not a number", "image,age\na.png,twelve\n", `roster line 2: invalid age "twelve"`},
		{"age too young", "image,age\na.png,12\nb.png,4\n", "roster line 3: age must be between 5 and 30"},
		{"age too old", "image,age\na.png,31\n", "roster line 2: age must be between 5 and 30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readRoster(writeRoster(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := readRoster(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "failed to open roster")
}

func TestWriteSummary(t *testing.T) {
	rows := []rosterRow{
		{Index: 1, Image: "ana.png", Metadata: internal.StudentMetadata{Name: "Ana"}},
		{Index: 2, Image: "luis.png", Metadata: internal.StudentMetadata{Name: "Luis"}},
		{Index: 3, Image: "eva.png", Metadata: internal.StudentMetadata{Name: "Eva"}},
	}
	results := map[int]store.BatchItem{
		1: {Row: 1, Status: store.ItemDone, ReportID: "r-1"},
		2: {Row: 2, Status: store.ItemFailed, Error: "no text found in image"},
	}
	path := filepath.Join(t.TempDir(), "summary.csv")

	require.NoError(t, writeSummary(path, rows, results))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"row", "name", "image", "status", "report_id", "error"},
		{"1", "Ana", "ana.png", "done", "r-1", ""},
		{"2", "Luis", "luis.png", "failed", "", "no text found in image"},
		{"3", "Eva", "eva.png", "pending", "", ""},
	}, records)
}

func TestCountDone(t *testing.T) {
	items := map[int]store.BatchItem{
		1: {Status: store.ItemDone},
		2: {Status: store.ItemFailed},
		3: {Status: store.ItemDone},
	}
	assert.Equal(t, 2, countDone(items))
	assert.Zero(t, countDone(nil))
}

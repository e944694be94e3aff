package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressDataset() Dataset {
	return Dataset{
		Title:   "Student Progress",
		Headers: []string{"StudentID", "FirstName", "LastName", "TotalCourses"},
		Rows: [][]string{
			{"7", "Ada", "Lovelace", "3"},
			{"8", "Grace", "Hopper, Jr.", "1"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(progressDataset())
	require.NoError(t, err)
	assert.Equal(t, "StudentID,FirstName,LastName,TotalCourses\n7,Ada,Lovelace,3\n8,Grace,\"Hopper, Jr.\",1\n", string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	data := progressDataset()
	data.Rows = append(data.Rows, []string{"9"})
	_, err := NewCSVExporter().Render(data)
	require.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	data := progressDataset()
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, []string{"10", "Row", "Filler", "0"})
	}
	out, err := exporter.Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", exporter.ContentType())
}

package report

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/database"
	"github.com/pulseboard/pulseboard/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	return db
}

func createDashboardWithWidgets(t *testing.T, db *gorm.DB) *models.Dashboard {
	t.Helper()
	dashboard := models.Dashboard{OwnerID: 1, Title: "Revenue", Description: "Quarterly revenue overview"}
	require.NoError(t, db.Create(&dashboard).Error)

	widgets := []models.Widget{
		{DashboardID: dashboard.ID, Type: models.WidgetChart, Title: "Revenue by region", Config: `{"kind":"bar"}`},
		{DashboardID: dashboard.ID, Type: models.WidgetMetric, Title: "Total revenue", Config: `{"agg":"sum"}`},
	}
	require.NoError(t, db.Create(&widgets).Error)
	return &dashboard
}

func TestRenderPDF(t *testing.T) {
	db := newTestDB(t)
	renderer := NewRenderer(db)
	dashboard := createDashboardWithWidgets(t, db)

	artifact, err := renderer.RenderDashboard(dashboard.ID, models.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, models.FormatPDF, artifact.Format)
	assert.Equal(t, "Revenue.pdf", artifact.Filename)
	assert.Equal(t, "application/pdf", artifact.MIME)
	require.NotEmpty(t, artifact.Data)
	assert.Equal(t, "%PDF", string(artifact.Data[:4]))
}

func TestRenderXLSX(t *testing.T) {
	db := newTestDB(t)
	renderer := NewRenderer(db)
	dashboard := createDashboardWithWidgets(t, db)

	artifact, err := renderer.RenderDashboard(dashboard.ID, models.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, models.FormatXLSX, artifact.Format)
	assert.Equal(t, "Revenue.xlsx", artifact.Filename)
	assert.NotEmpty(t, artifact.Data)
}

func TestRenderUnknownDashboard(t *testing.T) {
	renderer := NewRenderer(newTestDB(t))

	_, err := renderer.RenderDashboard(999, models.FormatPDF)
	assert.True(t, errors.Is(err, models.ErrDashboardNotFound))
}

func TestRenderUnknownFormat(t *testing.T) {
	db := newTestDB(t)
	renderer := NewRenderer(db)
	dashboard := createDashboardWithWidgets(t, db)

	_, err := renderer.RenderDashboard(dashboard.ID, models.ReportFormat("DOCX"))
	assert.Error(t, err)
}

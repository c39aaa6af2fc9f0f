package report

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/pulseboard/pulseboard/internal/models"
)

// Artifact is a rendered report ready for delivery.
type Artifact struct {
	Format   models.ReportFormat
	Filename string
	MIME     string
	Data     []byte
}

// Renderer produces report artifacts from a dashboard and its widgets.
type Renderer struct {
	db *gorm.DB
}

func NewRenderer(db *gorm.DB) *Renderer {
	return &Renderer{db: db}
}

// RenderDashboard generates an artifact in the requested format. It
// fails with ErrDashboardNotFound if the dashboard was deleted after
// scheduling.
func (r *Renderer) RenderDashboard(dashboardID uint, format models.ReportFormat) (*Artifact, error) {
	var dashboard models.Dashboard
	err := r.db.Preload("Widgets").First(&dashboard, dashboardID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDashboardNotFound
		}
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	switch format {
	case models.FormatPDF:
		return r.renderPDF(&dashboard)
	case models.FormatXLSX:
		return r.renderXLSX(&dashboard)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (r *Renderer) renderPDF(dashboard *models.Dashboard) (*Artifact, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, dashboard.Title, "", 1, "L", false, 0, "")

	if dashboard.Description != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, dashboard.Description, "", "L", false)
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated %s", time.Now().Format(time.RFC1123)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(60, 8, "Widget", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(100, 8, "Configuration", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, w := range dashboard.Widgets {
		config := w.Config
		if len(config) > 80 {
			config = config[:77] + "..."
		}
		pdf.CellFormat(60, 7, w.Title, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, string(w.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(100, 7, config, "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	return &Artifact{
		Format:   models.FormatPDF,
		Filename: fmt.Sprintf("%s.pdf", dashboard.Title),
		MIME:     "application/pdf",
		Data:     buf.Bytes(),
	}, nil
}

func (r *Renderer) renderXLSX(dashboard *models.Dashboard) (*Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", dashboard.Title)
	f.SetCellValue(sheet, "A2", dashboard.Description)

	headers := []string{"Widget", "Type", "X", "Y", "Width", "Height", "Configuration"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(sheet, cell, h)
	}

	for row, w := range dashboard.Widgets {
		values := []interface{}{w.Title, string(w.Type), w.PosX, w.PosY, w.Width, w.Height, w.Config}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+5)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render XLSX: %w", err)
	}

	return &Artifact{
		Format:   models.FormatXLSX,
		Filename: fmt.Sprintf("%s.xlsx", dashboard.Title),
		MIME:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:     buf.Bytes(),
	}, nil
}

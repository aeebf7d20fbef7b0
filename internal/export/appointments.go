package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"equilibria/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	appointmentsSheet = "Consultas"
	summarySheet      = "Resumo"
	headerRow         = 2
)

var appointmentHeaders = []string{"ID", "Data", "Horário", "Profissional", "Usuário", "Status"}

var statusColors = map[string]string{
	models.StatusScheduled: "#DDEBF7",
	models.StatusCompleted: "#E2EFDA",
	models.StatusCancelled: "#FCE4D6",
}

// WriteAppointments renders appointments dated from..to as an XLSX workbook
// with one row per appointment and a per-practitioner summary sheet.
func WriteAppointments(w io.Writer, from, to string, appointments []models.Appointment) error {
	f, err := buildWorkbook(from, to, appointments)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveAppointments writes the workbook under dir and returns its path.
func SaveAppointments(dir, from, to string, appointments []models.Appointment) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := buildWorkbook(from, to, appointments)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(from, to))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

// FileName is the download name for a date range export.
func FileName(from, to string) string {
	return fmt.Sprintf("consultas_%s_a_%s.xlsx", from, to)
}

func buildWorkbook(from, to string, appointments []models.Appointment) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(appointmentsSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeAppointmentsSheet(f, from, to, appointments); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeSummarySheet(f, appointments); err != nil {
		_ = f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeAppointmentsSheet(f *excelize.File, from, to string, appointments []models.Appointment) error {
	_ = f.SetCellValue(appointmentsSheet, "A1", fmt.Sprintf("Período: %s - %s", from, to))
	lastCol, _ := excelize.ColumnNumberToName(len(appointmentHeaders))
	_ = f.MergeCell(appointmentsSheet, "A1", lastCol+"1")

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	_ = f.SetCellStyle(appointmentsSheet, "A1", "A1", titleStyle)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#BDD7EE"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	header := make([]interface{}, len(appointmentHeaders))
	for i, h := range appointmentHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(appointmentsSheet, fmt.Sprintf("A%d", headerRow), &header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	_ = f.SetCellStyle(appointmentsSheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), headerStyle)

	statusStyles := make(map[string]int, len(statusColors))
	for status, color := range statusColors {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("error creating style: %w", err)
		}
		statusStyles[status] = id
	}

	for i, a := range appointments {
		row := headerRow + 1 + i
		values := []interface{}{a.ID, a.Date, a.Time, a.PractitionerName, userLabel(a), a.Status}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(appointmentsSheet, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := statusStyles[a.Status]; ok {
			statusCell, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(appointmentsSheet, statusCell, statusCell, style)
		}
	}

	_ = f.SetColWidth(appointmentsSheet, "A", "A", 8)
	_ = f.SetColWidth(appointmentsSheet, "B", "C", 12)
	_ = f.SetColWidth(appointmentsSheet, "D", "D", 30)
	_ = f.SetColWidth(appointmentsSheet, "E", "E", 24)
	_ = f.SetColWidth(appointmentsSheet, "F", "F", 12)
	return nil
}

// userLabel falls back to the id for rows loaded without the owner's name.
func userLabel(a models.Appointment) string {
	if a.UserName != "" {
		return a.UserName
	}
	return fmt.Sprintf("#%d", a.UserID)
}

type practitionerTotals struct {
	name                           string
	scheduled, completed, canceled int
}

func writeSummarySheet(f *excelize.File, appointments []models.Appointment) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	byID := make(map[int64]*practitionerTotals)
	for _, a := range appointments {
		t, ok := byID[a.PractitionerID]
		if !ok {
			t = &practitionerTotals{name: a.PractitionerName}
			byID[a.PractitionerID] = t
		}
		switch a.Status {
		case models.StatusScheduled:
			t.scheduled++
		case models.StatusCompleted:
			t.completed++
		case models.StatusCancelled:
			t.canceled++
		}
	}

	totals := make([]*practitionerTotals, 0, len(byID))
	for _, t := range byID {
		totals = append(totals, t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].name < totals[j].name })

	header := []interface{}{"Profissional", "Agendadas", "Realizadas", "Canceladas"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing summary header: %w", err)
	}
	for i, t := range totals {
		row := []interface{}{t.name, t.scheduled, t.completed, t.canceled}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("error writing summary row: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 30)
	return nil
}

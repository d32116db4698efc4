package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ml4ch/CoSESWeather/internal/models"
)

const (
	exportSheet = "Export"
	dateLayout  = "2006-01-02"
	timeLayout  = "15:04:05"
)

var hiloHeader = []string{"Date", "Min", "Min Time", "Max", "Max Time"}

func exportHeader(channels []models.Channel) []string {
	header := make([]string, 0, len(channels)+2)
	header = append(header, "Date", "Time")
	for _, ch := range channels {
		header = append(header, ch.Label)
	}
	return header
}

// RenderCSV writes the main series of an export. Timestamps are rendered in UTC and
// missing channel values stay empty.
func RenderCSV(result *ExportResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader(result.Channels)); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range result.Rows {
		ts := time.Unix(row.Timestamp, 0).UTC()
		record := make([]string, 0, len(row.Values)+2)
		record = append(record, ts.Format(dateLayout), ts.Format(timeLayout))
		for _, v := range row.Values {
			if v == nil {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(*v, 'f', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderXLSX builds a workbook with the main series on the "Export" sheet and one
// "HiLo <channel>" sheet per hi/lo series.
func RenderXLSX(result *ExportResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	rows := make([][]any, 0, len(result.Rows))
	for _, sample := range result.Rows {
		ts := time.Unix(sample.Timestamp, 0).UTC()
		row := make([]any, 0, len(sample.Values)+2)
		row = append(row, ts.Format(dateLayout), ts.Format(timeLayout))
		for _, v := range sample.Values {
			row = append(row, cellValue(v))
		}
		rows = append(rows, row)
	}
	if err := writeSheet(f, exportSheet, exportHeader(result.Channels), rows, headerStyle); err != nil {
		return nil, err
	}

	for _, series := range result.HiLo {
		sheet := "HiLo " + series.Channel
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		rows := make([][]any, 0, len(series.Series))
		for _, stat := range series.Series {
			rows = append(rows, []any{
				time.Unix(stat.DateTime, 0).UTC().Format(dateLayout),
				cellValue(stat.Min),
				clockValue(stat.MinTime),
				cellValue(stat.Max),
				clockValue(stat.MaxTime),
			})
		}
		if err := writeSheet(f, sheet, hiloHeader, rows, headerStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

func cellValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func clockValue(ts *int64) any {
	if ts == nil {
		return nil
	}
	return time.Unix(*ts, 0).UTC().Format(timeLayout)
}

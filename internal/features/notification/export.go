package notification

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{"Created", "Type", "Priority", "Channel", "Status", "Title", "Message", "Read At"}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

// writeWorkbook renders notifications as a single-sheet xlsx file.
func writeWorkbook(rows []Notification, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Notifications"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, n := range rows {
		created := n.CreatedAt
		values := []interface{}{
			formatTime(&created, loc),
			string(n.Type),
			string(n.Priority),
			string(n.Channel),
			string(n.Status),
			n.Title,
			n.Message,
			formatTime(n.ReadAt, loc),
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	widths := []float64{20, 20, 10, 10, 12, 30, 60, 20}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, w)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buffer.Bytes(), nil
}

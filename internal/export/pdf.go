package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

// Renderer 把已完成的班表渲染成按天分组的 PDF 表格
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

var columnHeaders = []string{"Date", "Start", "End", "Available", "Assigned"}

// Render 生成班表的 PDF 导出。
// days 需要按日期排好序，slotsByDay 以 ScheduleDay 的 ID 为键，
// usernames 用于把时段上的参与者 ID 解析成用户名
func (r *Renderer) Render(schedule *domain.Schedule, days []*domain.ScheduleDay, slotsByDay map[int64][]*domain.TimeSlot, usernames map[int64]string, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, schedule.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Duration: %d days  Generated: %s", schedule.Duration, generatedAt.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	colWidth := 190.0 / float64(len(columnHeaders))

	pdf.SetFont("Arial", "B", 10)
	for _, header := range columnHeaders {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, day := range days {
		for _, slot := range slotsByDay[day.ID] {
			available := "yes"
			if !slot.IsAvailable {
				available = "no"
			}

			assigned := make([]string, 0, len(slot.ParticipantIDs))
			for _, participantID := range slot.ParticipantIDs {
				if username, exists := usernames[participantID]; exists {
					assigned = append(assigned, username)
				}
			}

			cells := []string{day.Date, slot.StartTime, slot.EndTime, available, strings.Join(assigned, ", ")}
			for _, cell := range cells {
				pdf.CellFormat(colWidth, 7, cell, "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename 生成导出文件名，空格替换为下划线
func Filename(schedule *domain.Schedule, generatedAt time.Time) string {
	name := fmt.Sprintf("schedule_%s_%s.pdf", schedule.Name, generatedAt.Format("20060102_1504"))
	return strings.ReplaceAll(name, " ", "_")
}

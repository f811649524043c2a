package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/zenithlearn/zenith-back/internal/models"
)

// BuildClassReport renders a class roster workbook: one row per enrolled
// student with streak, coin balance and per-subject completion.
func BuildClassReport(cl *models.Class, students []models.Profile, progress map[string][]models.UserProgress) (*excelize.File, error) {
	f := excelize.NewFile()

	const sheet = "Roster"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s (%s) - code %s", cl.Name, cl.Subject, cl.Code)
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return nil, err
	}

	headers := []string{"Student", "Grade", "Streak", "Coins", "Subject", "Completion %", "Score", "Minutes"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	row := 3
	for _, st := range students {
		rows := progress[st.UserID]
		if len(rows) == 0 {
			// still list students with no recorded progress
			rows = []models.UserProgress{{}}
		}
		for _, up := range rows {
			values := []interface{}{
				st.DisplayName, st.GradeLevel, st.LearningStreak, st.TotalKnowledgeCoins,
				up.Subject, up.CompletionPercentage, up.Score, up.TimeSpent,
			}
			for i, v := range values {
				cell, err := excelize.CoordinatesToCellName(i+1, row)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return nil, err
				}
			}
			row++
		}
	}

	return f, nil
}

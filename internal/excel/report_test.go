package excel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithlearn/zenith-back/internal/models"
)

func TestBuildClassReport(t *testing.T) {
	cl := &models.Class{Name: "Algebra II", Subject: "Mathematics", Code: "AB12CD"}
	students := []models.Profile{
		{UserID: "u1", DisplayName: "Alex Rivera", GradeLevel: "9", LearningStreak: 3, TotalKnowledgeCoins: 150},
		{UserID: "u2", DisplayName: "Sam Okafor"},
	}
	progress := map[string][]models.UserProgress{
		"u1": {
			{Subject: "mathematics", CompletionPercentage: 40, Score: 120, TimeSpent: 15},
			{Subject: "physics", CompletionPercentage: 10, Score: 30, TimeSpent: 5},
		},
	}

	f, err := BuildClassReport(cl, students, progress)
	require.NoError(t, err)

	title, err := f.GetCellValue("Roster", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Algebra II (Mathematics) - code AB12CD", title)

	name, err := f.GetCellValue("Roster", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Alex Rivera", name)

	subject, err := f.GetCellValue("Roster", "E4")
	require.NoError(t, err)
	assert.Equal(t, "physics", subject)

	// a student with no progress still gets a roster row
	name, err = f.GetCellValue("Roster", "A5")
	require.NoError(t, err)
	assert.Equal(t, "Sam Okafor", name)
}

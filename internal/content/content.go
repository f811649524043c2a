// Package content holds the static subject, lesson and game catalog served
// by the subject, lesson and game pages.
package content

import "errors"

var ErrNotFound = errors.New("content: not found")

type Subject struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Description string   `json:"description"`
	Lessons     []Lesson `json:"lessons"`
}

type Lesson struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration_minutes"`
	XP       int    `json:"xp"`
}

type GameQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation"`
}

var subjects = []Subject{
	{
		ID:          "mathematics",
		Name:        "Mathematics",
		Icon:        "📊",
		Description: "Algebra, geometry and number sense",
		Lessons: []Lesson{
			{ID: "linear-equations", Title: "Solving Linear Equations", Duration: 15, XP: 150},
			{ID: "quadratic-basics", Title: "Quadratic Basics", Duration: 20, XP: 200},
			{ID: "graphing-lines", Title: "Graphing Lines", Duration: 15, XP: 150},
		},
	},
	{
		ID:          "physics",
		Name:        "Physics",
		Icon:        "⚛️",
		Description: "Motion, forces and energy",
		Lessons: []Lesson{
			{ID: "kinematics", Title: "Kinematics", Duration: 20, XP: 200},
			{ID: "newtons-laws", Title: "Newton's Laws", Duration: 20, XP: 200},
		},
	},
	{
		ID:          "chemistry",
		Name:        "Chemistry",
		Icon:        "🧪",
		Description: "Atoms, bonds and reactions",
		Lessons: []Lesson{
			{ID: "atomic-structure", Title: "Atomic Structure", Duration: 15, XP: 150},
			{ID: "chemical-bonds", Title: "Chemical Bonds", Duration: 20, XP: 200},
		},
	},
	{
		ID:          "biology",
		Name:        "Biology",
		Icon:        "🧬",
		Description: "Cells, genetics and ecosystems",
		Lessons: []Lesson{
			{ID: "cell-structure", Title: "Cell Structure", Duration: 15, XP: 150},
			{ID: "dna-basics", Title: "DNA Basics", Duration: 20, XP: 200},
		},
	},
}

var games = map[string][]GameQuestion{
	"mathematics": {
		{
			Question:    "What is 2x + 5 = 13?",
			Options:     []string{"x = 4", "x = 6", "x = 8", "x = 9"},
			Correct:     0,
			Explanation: "Subtract 5 from both sides: 2x = 8, then divide by 2: x = 4",
		},
		{
			Question:    "Solve for y: 3y - 7 = 14",
			Options:     []string{"y = 5", "y = 7", "y = 9", "y = 11"},
			Correct:     1,
			Explanation: "Add 7 to both sides: 3y = 21, then divide by 3: y = 7",
		},
		{
			Question:    "What is the value of x in: x/4 = 6?",
			Options:     []string{"x = 20", "x = 22", "x = 24", "x = 26"},
			Correct:     2,
			Explanation: "Multiply both sides by 4: x = 6 × 4 = 24",
		},
	},
}

func Subjects() []Subject {
	return subjects
}

func SubjectByID(id string) (*Subject, error) {
	for i := range subjects {
		if subjects[i].ID == id {
			return &subjects[i], nil
		}
	}
	return nil, ErrNotFound
}

func LessonByID(subjectID, lessonID string) (*Lesson, error) {
	s, err := SubjectByID(subjectID)
	if err != nil {
		return nil, err
	}
	for i := range s.Lessons {
		if s.Lessons[i].ID == lessonID {
			return &s.Lessons[i], nil
		}
	}
	return nil, ErrNotFound
}

func GameQuestions(subjectID string) ([]GameQuestion, error) {
	qs, ok := games[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	return qs, nil
}

package models

import "time"

// Role is the account role fixed at sign-up. There is no API path that
// changes it afterwards.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash []byte
	GoogleLinked bool
	CreatedAt    time.Time
}

// Profile holds the role and gamification counters. Exactly one row per user,
// created as part of sign-up.
type Profile struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	UserID              string    `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	DisplayName         string    `gorm:"not null" json:"display_name"`
	Role                Role      `gorm:"size:16;not null" json:"role"`
	LearningStreak      int       `gorm:"not null;default:0" json:"learning_streak"`
	TotalKnowledgeCoins int       `gorm:"not null;default:0" json:"total_knowledge_coins"`
	GradeLevel          string    `json:"grade_level,omitempty"`
	ClassCode           string    `gorm:"size:6" json:"class_code,omitempty"`
	Institution         string    `json:"institution,omitempty"`
	LastActivity        time.Time `json:"last_activity"`
	CreatedAt           time.Time `json:"created_at"`
}

// Class is a teacher-created group joined by students via the code.
type Class struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Subject     string    `gorm:"not null" json:"subject"`
	Code        string    `gorm:"uniqueIndex;size:6;not null" json:"code"`
	Description string    `json:"description,omitempty"`
	TeacherID   string    `gorm:"index;size:36;not null" json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserProgress tracks per-subject completion. One row per (user, subject).
type UserProgress struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	UserID               string    `gorm:"index:idx_progress_user_subject,unique;size:36;not null" json:"user_id"`
	Subject              string    `gorm:"index:idx_progress_user_subject,unique;not null" json:"subject"`
	CompletionPercentage int       `gorm:"not null;default:0" json:"completion_percentage"`
	Score                int       `gorm:"not null;default:0" json:"score"`
	TimeSpent            int       `gorm:"not null;default:0" json:"time_spent"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// CoinTransaction is the append-only ledger behind TotalKnowledgeCoins.
type CoinTransaction struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Source    string    `gorm:"not null" json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

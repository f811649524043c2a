package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/zenithlearn/zenith-back/internal/models"
)

var (
	// ErrNotFound means the row does not exist. Callers must treat this as a
	// distinct outcome from a transport failure: a missing profile redirects,
	// a flaky connection does not.
	ErrNotFound = errors.New("db: not found")

	// ErrDuplicate means a unique index rejected the write (email, class code).
	ErrDuplicate = errors.New("db: duplicate")
)

// Store is what the handlers, guard and cron jobs need from persistence.
// The in-memory implementation in db/inmem backs the tests.
type Store interface {
	Ping() error

	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id string) (*models.User, error)

	CreateProfile(ctx context.Context, p *models.Profile) error
	ProfileByUserID(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfileCounters(ctx context.Context, p *models.Profile) error

	CreateClass(ctx context.Context, cl *models.Class) error
	ClassesByTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
	ClassByID(ctx context.Context, id string) (*models.Class, error)
	StudentsByClassCode(ctx context.Context, code string) ([]models.Profile, error)

	ProgressByUser(ctx context.Context, userID string) ([]models.UserProgress, error)
	UpsertProgress(ctx context.Context, up *models.UserProgress) error

	AddCoins(ctx context.Context, userID string, amount int, source string) error
	ResetLapsedStreaks(ctx context.Context, cutoff time.Time) (int64, error)
}

// DB is the postgres-backed Store.
type DB struct {
	g *gorm.DB
}

func Open(dsn string) (*DB, error) {
	g, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// AutoMigrate will create/update tables automatically
	err = g.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Class{},
		&models.UserProgress{},
		&models.CoinTransaction{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Println("✅ Database connected and migrated")
	return &DB{g: g}, nil
}

func (d *DB) Ping() error {
	sqlDB, err := d.g.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	return translate(d.g.WithContext(ctx).Create(u).Error)
}

func (d *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := d.g.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (d *DB) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := d.g.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (d *DB) CreateProfile(ctx context.Context, p *models.Profile) error {
	return translate(d.g.WithContext(ctx).Create(p).Error)
}

func (d *DB) ProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := d.g.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// UpdateProfileCounters writes the mutable gamification fields. Role is
// deliberately not in the column list: it is immutable through the API.
func (d *DB) UpdateProfileCounters(ctx context.Context, p *models.Profile) error {
	return translate(d.g.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", p.UserID).
		Updates(map[string]interface{}{
			"learning_streak":       p.LearningStreak,
			"total_knowledge_coins": p.TotalKnowledgeCoins,
			"grade_level":           p.GradeLevel,
			"class_code":            p.ClassCode,
			"last_activity":         p.LastActivity,
		}).Error)
}

func (d *DB) CreateClass(ctx context.Context, cl *models.Class) error {
	return translate(d.g.WithContext(ctx).Create(cl).Error)
}

func (d *DB) ClassesByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	var classes []models.Class
	err := d.g.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&classes).Error
	if err != nil {
		return nil, translate(err)
	}
	return classes, nil
}

func (d *DB) ClassByID(ctx context.Context, id string) (*models.Class, error) {
	var cl models.Class
	if err := d.g.WithContext(ctx).Where("id = ?", id).First(&cl).Error; err != nil {
		return nil, translate(err)
	}
	return &cl, nil
}

func (d *DB) StudentsByClassCode(ctx context.Context, code string) ([]models.Profile, error) {
	var students []models.Profile
	err := d.g.WithContext(ctx).
		Where("class_code = ? AND role = ?", code, models.RoleStudent).
		Order("display_name").
		Find(&students).Error
	if err != nil {
		return nil, translate(err)
	}
	return students, nil
}

func (d *DB) ProgressByUser(ctx context.Context, userID string) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	err := d.g.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("subject").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (d *DB) UpsertProgress(ctx context.Context, up *models.UserProgress) error {
	var existing models.UserProgress
	err := d.g.WithContext(ctx).
		Where("user_id = ? AND subject = ?", up.UserID, up.Subject).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return translate(d.g.WithContext(ctx).Create(up).Error)
		}
		return translate(err)
	}
	return translate(d.g.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"completion_percentage": up.CompletionPercentage,
		"score":                 up.Score,
		"time_spent":            up.TimeSpent,
	}).Error)
}

func (d *DB) AddCoins(ctx context.Context, userID string, amount int, source string) error {
	return translate(d.g.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn := models.CoinTransaction{UserID: userID, Amount: amount, Source: source}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}
		return tx.Model(&models.Profile{}).
			Where("user_id = ?", userID).
			Update("total_knowledge_coins", gorm.Expr("total_knowledge_coins + ?", amount)).Error
	}))
}

// ResetLapsedStreaks zeroes the streak of every student idle since before the
// cutoff. Runs from the daily cron job.
func (d *DB) ResetLapsedStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	res := d.g.WithContext(ctx).Model(&models.Profile{}).
		Where("learning_streak > 0 AND last_activity < ?", cutoff).
		Update("learning_streak", 0)
	return res.RowsAffected, translate(res.Error)
}

// Package inmem is a map-backed Store used by tests.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/zenithlearn/zenith-back/internal/db"
	"github.com/zenithlearn/zenith-back/internal/models"
)

type Store struct {
	mutex     sync.RWMutex
	users     map[string]*models.User
	profiles  map[string]*models.Profile
	classes   map[string]*models.Class
	progress  map[string][]*models.UserProgress
	coins     []*models.CoinTransaction
	nextID    uint
	forcedErr error
}

func Open() *Store {
	return &Store{
		users:    make(map[string]*models.User),
		profiles: make(map[string]*models.Profile),
		classes:  make(map[string]*models.Class),
		progress: make(map[string][]*models.UserProgress),
	}
}

// Fail makes every subsequent call return err, simulating a transport
// failure. Fail(nil) clears it.
func (s *Store) Fail(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.forcedErr = err
}

func (s *Store) failed() error {
	return s.forcedErr
}

func (s *Store) Ping() error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.failed()
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return db.ErrDuplicate
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	if _, ok := s.profiles[p.UserID]; ok {
		return db.ErrDuplicate
	}
	s.nextID++
	p.ID = s.nextID
	p.CreatedAt = time.Now()
	cp := *p
	s.profiles[p.UserID] = &cp
	return nil
}

func (s *Store) ProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProfileCounters(ctx context.Context, p *models.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	existing, ok := s.profiles[p.UserID]
	if !ok {
		return db.ErrNotFound
	}
	existing.LearningStreak = p.LearningStreak
	existing.TotalKnowledgeCoins = p.TotalKnowledgeCoins
	existing.GradeLevel = p.GradeLevel
	existing.ClassCode = p.ClassCode
	existing.LastActivity = p.LastActivity
	return nil
}

func (s *Store) CreateClass(ctx context.Context, cl *models.Class) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	for _, existing := range s.classes {
		if existing.Code == cl.Code {
			return db.ErrDuplicate
		}
	}
	cl.CreatedAt = time.Now()
	cp := *cl
	s.classes[cl.ID] = &cp
	return nil
}

func (s *Store) ClassesByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	var out []models.Class
	for _, cl := range s.classes {
		if cl.TeacherID == teacherID {
			out = append(out, *cl)
		}
	}
	return out, nil
}

func (s *Store) ClassByID(ctx context.Context, id string) (*models.Class, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	cl, ok := s.classes[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *cl
	return &cp, nil
}

func (s *Store) StudentsByClassCode(ctx context.Context, code string) ([]models.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	var out []models.Profile
	for _, p := range s.profiles {
		if p.Role == models.RoleStudent && p.ClassCode == code {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) ProgressByUser(ctx context.Context, userID string) ([]models.UserProgress, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if err := s.failed(); err != nil {
		return nil, err
	}
	var out []models.UserProgress
	for _, up := range s.progress[userID] {
		out = append(out, *up)
	}
	return out, nil
}

func (s *Store) UpsertProgress(ctx context.Context, up *models.UserProgress) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	for _, existing := range s.progress[up.UserID] {
		if existing.Subject == up.Subject {
			existing.CompletionPercentage = up.CompletionPercentage
			existing.Score = up.Score
			existing.TimeSpent = up.TimeSpent
			existing.UpdatedAt = time.Now()
			return nil
		}
	}
	s.nextID++
	up.ID = s.nextID
	up.UpdatedAt = time.Now()
	cp := *up
	s.progress[up.UserID] = append(s.progress[up.UserID], &cp)
	return nil
}

func (s *Store) AddCoins(ctx context.Context, userID string, amount int, source string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.failed(); err != nil {
		return err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return db.ErrNotFound
	}
	s.coins = append(s.coins, &models.CoinTransaction{
		UserID: userID, Amount: amount, Source: source, CreatedAt: time.Now(),
	})
	p.TotalKnowledgeCoins += amount
	return nil
}

func (s *Store) ResetLapsedStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.failed(); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range s.profiles {
		if p.LearningStreak > 0 && p.LastActivity.Before(cutoff) {
			p.LearningStreak = 0
			n++
		}
	}
	return n, nil
}

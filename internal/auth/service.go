package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zenithlearn/zenith-back/internal/config"
	"github.com/zenithlearn/zenith-back/internal/db"
	"github.com/zenithlearn/zenith-back/internal/models"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidToken       = errors.New("auth: invalid token")
)

// Session is an active sign-in: token id plus the user it belongs to.
// Issued on sign-in/sign-up, revoked on sign-out. Pages observe sessions,
// they never mutate them.
type Session struct {
	ID     string
	UserID string
	Expiry time.Time
}

// TokenPair is what sign-in and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        models.Role
	ClassCode   string
	Institution string
	GradeLevel  string
}

// Service owns accounts and the session registry.
type Service struct {
	cfg   *config.Config
	store db.Store

	mutex    sync.RWMutex
	sessions map[string]*Session
	watchers map[string]map[int]chan *Session
	nextWID  int
}

func NewService(cfg *config.Config, store db.Store) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		sessions: make(map[string]*Session),
		watchers: make(map[string]map[int]chan *Session),
	}
}

// SignUp creates the account and its profile row in one flow, then signs the
// user in. The profile row is the side effect the dashboards depend on.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*TokenPair, *models.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	u := models.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	p := models.Profile{
		UserID:       u.ID,
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		GradeLevel:   in.GradeLevel,
		LastActivity: time.Now(),
	}
	switch in.Role {
	case models.RoleStudent:
		p.ClassCode = in.ClassCode
	case models.RoleTeacher:
		p.Institution = in.Institution
	}
	if err := s.store.CreateProfile(ctx, &p); err != nil {
		return nil, nil, err
	}

	pair, err := s.openSession(u.ID)
	if err != nil {
		return nil, nil, err
	}
	return pair, &p, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if len(u.PasswordHash) == 0 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.openSession(u.ID)
}

// SignOut revokes the session and notifies its watchers with a nil session.
func (s *Service) SignOut(sessionID string) {
	// snapshot the channels under the lock; broadcasting on the live map
	// races with Watch registering and unsubscribing
	s.mutex.Lock()
	delete(s.sessions, sessionID)
	subs := make([]chan *Session, 0, len(s.watchers[sessionID]))
	for _, ch := range s.watchers[sessionID] {
		subs = append(subs, ch)
	}
	s.mutex.Unlock()

	for _, ch := range subs {
		select {
		case ch <- nil:
		default:
		}
	}
}

// Refresh trades a valid refresh token for a new pair. The session id is
// carried over, so a sign-out issued before the refresh still wins.
func (s *Service) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims["type"] != "refresh" {
		return nil, ErrInvalidToken
	}
	sid, _ := claims["sid"].(string)
	sub, _ := claims["sub"].(string)
	if sid == "" || sub == "" {
		return nil, ErrInvalidToken
	}

	s.mutex.RLock()
	sess, active := s.sessions[sid]
	s.mutex.RUnlock()
	if !active || time.Now().After(sess.Expiry) {
		return nil, ErrInvalidToken
	}
	return s.issuePair(sub, sid)
}

// PruneExpiredSessions drops sessions past their expiry and reports how many
// went. Watchers are not notified: an expired session already reads as
// unauthenticated everywhere.
func (s *Service) PruneExpiredSessions() int {
	now := time.Now()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if now.After(sess.Expiry) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Current resolves a bearer token to its session. A revoked or expired
// session yields (nil, nil): unauthenticated, not an error.
func (s *Service) Current(token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil, nil
	}
	if claims["type"] == "refresh" {
		return nil, nil
	}
	sid, _ := claims["sid"].(string)

	s.mutex.RLock()
	sess, ok := s.sessions[sid]
	s.mutex.RUnlock()
	if !ok || time.Now().After(sess.Expiry) {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

// Watch subscribes to changes of one session. The channel receives nil when
// the session is revoked. The returned func unsubscribes.
func (s *Service) Watch(sessionID string) (<-chan *Session, func()) {
	ch := make(chan *Session, 1)

	s.mutex.Lock()
	s.nextWID++
	id := s.nextWID
	if s.watchers[sessionID] == nil {
		s.watchers[sessionID] = make(map[int]chan *Session)
	}
	s.watchers[sessionID][id] = ch
	s.mutex.Unlock()

	return ch, func() {
		s.mutex.Lock()
		delete(s.watchers[sessionID], id)
		s.mutex.Unlock()
	}
}

func (s *Service) openSession(userID string) (*TokenPair, error) {
	sess := &Session{
		ID:     uuid.NewString(),
		UserID: userID,
		Expiry: time.Now().Add(refreshTTL),
	}
	s.mutex.Lock()
	s.sessions[sess.ID] = sess
	s.mutex.Unlock()
	return s.issuePair(userID, sess.ID)
}

func (s *Service) issuePair(userID, sessionID string) (*TokenPair, error) {
	jwtSecret := []byte(s.cfg.JWTSecret)

	accessClaims := jwt.MapClaims{
		"sub": userID,
		"sid": sessionID,
		"exp": time.Now().Add(accessTTL).Unix(),
	}
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	signedAccess, err := access.SignedString(jwtSecret)
	if err != nil {
		return nil, err
	}

	refreshClaims := jwt.MapClaims{
		"sub":  userID,
		"sid":  sessionID,
		"exp":  time.Now().Add(refreshTTL).Unix(),
		"type": "refresh",
	}
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	signedRefresh, err := refresh.SignedString(jwtSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: signedAccess, RefreshToken: signedRefresh}, nil
}

func (s *Service) parse(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Package guard decides whether a visitor may see a role-restricted page.
//
// Every dashboard used to make this call its own way; the guard is the one
// shared state machine: check the session, resolve the profile, compare the
// role, then allow, redirect, or report a retryable failure. It never
// panics and never redirects on a transport failure.
package guard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/zenithlearn/zenith-back/internal/models"
)

// ErrProfileNotFound is returned by a ProfileResolver when the profile row
// does not exist. Distinct from a transport failure: a missing row means
// the visitor is not set up and gets sent to sign-in, a flaky backend must
// not evict them.
var ErrProfileNotFound = errors.New("guard: profile not found")

// Dashboard routes the guard can send a visitor to.
const (
	RouteAuth             = "/auth"
	RouteStudentDashboard = "/student-dashboard"
	RouteTeacherDashboard = "/teacher-dashboard"
)

// DashboardFor returns the dashboard route matching a role.
func DashboardFor(role models.Role) string {
	if role == models.RoleTeacher {
		return RouteTeacherDashboard
	}
	return RouteStudentDashboard
}

// State is one step of the resolution machine. The terminal states for a
// page load are Allowed, RedirectSignIn, RedirectOtherRole and Error.
type State int

const (
	StateUnresolved State = iota
	StateCheckingSession
	StateCheckingProfile
	StateAllowed
	StateRedirectSignIn
	StateRedirectOtherRole
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateCheckingSession:
		return "checking_session"
	case StateCheckingProfile:
		return "checking_profile"
	case StateAllowed:
		return "allowed"
	case StateRedirectSignIn:
		return "redirect_sign_in"
	case StateRedirectOtherRole:
		return "redirect_other_role"
	case StateError:
		return "error"
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// Decision is the terminal outcome of one resolution. Target is set for the
// redirect states; Err for StateError.
type Decision struct {
	State   State           `json:"state"`
	Target  string          `json:"target,omitempty"`
	Session *Session        `json:"-"`
	Profile *models.Profile `json:"-"`
	Err     error           `json:"-"`
}

// Session is the guard's view of an authenticated visitor.
type Session struct {
	ID     string
	UserID string
}

// SessionSource is a point-in-time session read. (nil, nil) means
// unauthenticated.
type SessionSource interface {
	Current(ctx context.Context) (*Session, error)
}

// ProfileResolver looks up the profile row for a user id. Must return
// ErrProfileNotFound when the row is absent; any other error is treated as
// a transport failure.
type ProfileResolver interface {
	Resolve(ctx context.Context, userID string) (*models.Profile, error)
}

const defaultTimeout = 10 * time.Second

type Guard struct {
	sessions SessionSource
	profiles ProfileResolver
	required models.Role
	timeout  time.Duration
	observe  func(State)
}

type Option func(*Guard)

// WithTimeout bounds profile resolution. Expiry surfaces as StateError
// (retryable), never as unauthenticated.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) { g.timeout = d }
}

// WithObserver registers a callback invoked on every state the machine
// enters, in order. Used by tests and the session event stream.
func WithObserver(fn func(State)) Option {
	return func(g *Guard) { g.observe = fn }
}

func New(sessions SessionSource, profiles ProfileResolver, required models.Role, opts ...Option) *Guard {
	g := &Guard{
		sessions: sessions,
		profiles: profiles,
		required: required,
		timeout:  defaultTimeout,
		observe:  func(State) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve runs the machine from the top: session check first, profile check
// second, always in that order.
func (g *Guard) Resolve(ctx context.Context) Decision {
	g.observe(StateUnresolved)
	g.observe(StateCheckingSession)

	sess, err := g.sessions.Current(ctx)
	if err != nil {
		return g.fail(err)
	}
	return g.resolveSession(ctx, sess)
}

// ResolveSession runs the machine for an already-known session value, as
// delivered by a change event. A nil session is a sign-out.
func (g *Guard) ResolveSession(ctx context.Context, sess *Session) Decision {
	g.observe(StateUnresolved)
	g.observe(StateCheckingSession)
	return g.resolveSession(ctx, sess)
}

func (g *Guard) resolveSession(ctx context.Context, sess *Session) Decision {
	if sess == nil {
		g.observe(StateRedirectSignIn)
		return Decision{State: StateRedirectSignIn, Target: RouteAuth}
	}

	g.observe(StateCheckingProfile)
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	profile, err := g.profiles.Resolve(ctx, sess.UserID)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		// No profile row yet: not set up, treat as unauthenticated for
		// dashboard purposes.
		g.observe(StateRedirectSignIn)
		return Decision{State: StateRedirectSignIn, Target: RouteAuth, Session: sess}
	case err != nil:
		return g.fail(err)
	}

	if profile.Role != g.required {
		g.observe(StateRedirectOtherRole)
		return Decision{
			State:   StateRedirectOtherRole,
			Target:  DashboardFor(profile.Role),
			Session: sess,
			Profile: profile,
		}
	}

	g.observe(StateAllowed)
	return Decision{State: StateAllowed, Session: sess, Profile: profile}
}

func (g *Guard) fail(err error) Decision {
	g.observe(StateError)
	return Decision{State: StateError, Err: err}
}

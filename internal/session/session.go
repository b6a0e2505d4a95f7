// Package session composes one auth store with the streams that depend on
// it. A Session is the scope the UI talks to: it owns the heartbeat, opens
// and closes the telemetry and GPIO views, and builds state snapshots.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/pidash/internal/auth"
	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/gpio"
	"github.com/five82/pidash/internal/heartbeat"
	"github.com/five82/pidash/internal/request"
	"github.com/five82/pidash/internal/state"
	"github.com/five82/pidash/internal/stream"
	"github.com/five82/pidash/internal/sysinfo"
)

// Deps are the collaborators a Session is built from.
type Deps struct {
	API        endpoint.Requester
	Subscriber endpoint.Subscriber
	Tokens     auth.TokenStore
	Log        zerolog.Logger
	// InitialConnected seeds the heartbeat status.
	InitialConnected bool
}

type systemView struct {
	req    *request.DataRequest
	stream *sysinfo.Stream
}

type gpioView struct {
	req        *request.DataRequest
	stream     *gpio.Stream
	info       gpio.Info
	controller *gpio.Controller
}

// Session is one signed-in (or signing-in) scope.
type Session struct {
	api  endpoint.Requester
	sub  endpoint.Subscriber
	log  zerolog.Logger
	svc  *auth.Service
	auth *auth.Store
	beat *heartbeat.Monitor

	mu      sync.Mutex
	closed  bool
	system  *systemView
	gpio    *gpioView
	account *request.DataRequest
}

// New wires the auth store to the heartbeat. Nothing touches the network
// until Start.
func New(d Deps) *Session {
	svc := auth.NewService(d.API)
	store := auth.NewStore(svc, d.Tokens, d.Log)
	s := &Session{
		api:  d.API,
		sub:  d.Subscriber,
		log:  d.Log.With().Str("component", "session").Logger(),
		svc:  svc,
		auth: store,
	}
	s.beat = heartbeat.New(d.Subscriber, store.Ready, d.InitialConnected, d.Log)
	store.OnChange(func(auth.State) { s.refreshGates() })
	return s
}

// Auth returns the session's auth store.
func (s *Session) Auth() *auth.Store {
	return s.auth
}

// Heartbeat returns the session's heartbeat monitor.
func (s *Session) Heartbeat() *heartbeat.Monitor {
	return s.beat
}

// Start requests the heartbeat and runs the initial auth check. It blocks
// until the check finishes.
func (s *Session) Start(ctx context.Context) {
	s.beat.SetEnabled(true)
	s.auth.CheckAuthState(ctx)
}

// Login submits the login form.
func (s *Session) Login(ctx context.Context, username, password string) auth.FormResult {
	return auth.LoginHandler{Store: s.auth}.Submit(ctx, username, password)
}

// Signup submits the registration form.
func (s *Session) Signup(ctx context.Context, username, password, confirm string) auth.FormResult {
	return auth.SignupHandler{Service: s.svc}.Submit(ctx, username, password, confirm)
}

// ChangePassword submits the account page's password form.
func (s *Session) ChangePassword(ctx context.Context, current, password, confirm string) auth.FormResult {
	return auth.ChangePasswordHandler{Service: s.svc}.Submit(ctx, current, password, confirm)
}

// Logout clears the auth state. Gated streams close as a consequence.
func (s *Session) Logout() {
	s.auth.OnLogout()
}

// OpenSystem mounts the telemetry view: it fetches the snapshot and, once
// that succeeds, starts the stream seeded with it. Calling it again while
// mounted is a no-op.
func (s *Session) OpenSystem(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	if s.system == nil {
		s.system = &systemView{req: request.NewDataRequest(s.api, s.log)}
	}
	view := s.system
	s.mu.Unlock()

	view.req.Sync(ctx, sysinfo.Endpoints)
	st := view.req.State()
	if st.Err != nil {
		return st.Err
	}
	seed, err := sysinfo.FromState(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.system != view || view.stream != nil {
		return nil
	}
	view.stream = sysinfo.NewStream(s.sub, s.auth.Ready, seed, s.log)
	view.stream.SetEnabled(true)
	return nil
}

// CloseSystem unmounts the telemetry view. The next OpenSystem fetches a
// fresh snapshot.
func (s *Session) CloseSystem() {
	s.mu.Lock()
	view := s.system
	s.system = nil
	s.mu.Unlock()
	if view != nil && view.stream != nil {
		view.stream.Close()
	}
}

// OpenGPIO mounts the GPIO view: it fetches pin states and usable pins and,
// once that succeeds, starts the pin stream seeded with the states.
func (s *Session) OpenGPIO(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	if s.gpio == nil {
		s.gpio = &gpioView{
			req:        request.NewDataRequest(s.api, s.log),
			controller: gpio.NewController(s.api, s.log),
		}
	}
	view := s.gpio
	s.mu.Unlock()

	view.req.Sync(ctx, gpio.InfoEndpoints)
	st := view.req.State()
	if st.Err != nil {
		return st.Err
	}
	info, err := gpio.InfoFrom(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gpio != view || view.stream != nil {
		return nil
	}
	view.info = info
	view.stream = gpio.NewStream(s.sub, s.auth.Ready, info.State, s.log)
	view.stream.SetEnabled(true)
	return nil
}

// CloseGPIO unmounts the GPIO view and drops pending pin edits.
func (s *Session) CloseGPIO() {
	s.mu.Lock()
	view := s.gpio
	s.gpio = nil
	s.mu.Unlock()
	if view != nil && view.stream != nil {
		view.stream.Close()
	}
}

// TogglePin flips one switch of a pending pin edit.
func (s *Session) TogglePin(pin int, field gpio.Field) {
	if c := s.controller(); c != nil {
		c.Toggle(pin, field)
	}
}

// SubmitGPIO sends the pending pin edits.
func (s *Session) SubmitGPIO(ctx context.Context) (gpio.Command, error) {
	c := s.controller()
	if c == nil {
		return nil, errNotOpen
	}
	return c.Submit(ctx)
}

// OpenAccount fetches the signed-in user's profile.
func (s *Session) OpenAccount(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	if s.account == nil {
		s.account = request.NewDataRequest(s.api, s.log)
	}
	req := s.account
	s.mu.Unlock()

	req.Sync(ctx, auth.UserDataEndpoints)
	return req.State().Err
}

// CloseAccount unmounts the account view.
func (s *Session) CloseAccount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
}

// Close tears down every stream. The session cannot be reopened.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	sys, gp := s.system, s.gpio
	s.system, s.gpio, s.account = nil, nil, nil
	s.mu.Unlock()

	if sys != nil && sys.stream != nil {
		sys.stream.Close()
	}
	if gp != nil && gp.stream != nil {
		gp.stream.Close()
	}
	s.beat.Close()
}

// Snapshot builds the UI state. Decode failures are joined into the error
// while the remaining fields are still filled in.
func (s *Session) Snapshot() (state.Snapshot, error) {
	snap := state.Snapshot{
		Auth:      s.auth.GetAuthState(),
		Connected: s.beat.Connected(),
	}

	s.mu.Lock()
	sys, gp, acct := s.system, s.gpio, s.account
	var info gpio.Info
	if gp != nil {
		info = gp.info
	}
	s.mu.Unlock()

	var errs []error
	if sys != nil {
		snap.System.Page = pageOf(sys.req.State())
		if sys.stream != nil {
			snap.System.Streaming = sys.stream.Active()
			timeState, general := sys.stream.Time(), sys.stream.General()
			tm, err := sysinfo.DecodeTime(timeState.Data)
			errs = append(errs, err)
			gen, err := sysinfo.DecodeGeneral(general.Data)
			errs = append(errs, err)
			snap.System.Time, snap.System.General = tm, gen
			snap.System.UpdatedAt = latest(timeState.Timestamp, general.Timestamp)
		}
	}
	if gp != nil {
		snap.GPIO.Page = pageOf(gp.req.State())
		snap.GPIO.UsablePins = info.UsablePins
		snap.GPIO.Controls = map[int]gpio.Control{}
		for _, pin := range info.UsablePins {
			snap.GPIO.Controls[pin] = gp.controller.ControlState(pin)
		}
		snap.GPIO.CanSubmit = !gp.controller.DisableSubmit()
		if gp.stream != nil {
			snap.GPIO.Streaming = gp.stream.Active()
			st := gp.stream.State()
			pins, err := gpio.DecodePins(st.Data)
			errs = append(errs, err)
			snap.GPIO.Pins = pins
			snap.GPIO.UpdatedAt = st.Timestamp
		}
	}
	if acct != nil {
		st := acct.State()
		snap.Account.Page = pageOf(st)
		user, err := auth.UserData(st)
		errs = append(errs, err)
		snap.Account.User = user
		if claims, err := s.auth.Claims(); err == nil {
			snap.Account.Claims = claims
		}
	}
	return snap, errors.Join(errs...)
}

var (
	errClosed  = errors.New("session closed")
	errNotOpen = errors.New("view not open")
)

func (s *Session) controller() *gpio.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gpio == nil {
		return nil
	}
	return s.gpio.controller
}

// refreshGates re-evaluates every auth-gated stream after an auth change.
func (s *Session) refreshGates() {
	s.mu.Lock()
	gates := []interface{ Refresh() }{s.beat}
	if s.system != nil && s.system.stream != nil {
		gates = append(gates, s.system.stream)
	}
	if s.gpio != nil && s.gpio.stream != nil {
		gates = append(gates, s.gpio.stream)
	}
	s.mu.Unlock()

	for _, g := range gates {
		g.Refresh()
	}
}

func pageOf(st request.State) state.Page {
	return state.Page{
		Open:      true,
		Completed: st.Completed,
		Err:       st.Err,
		UpdatedAt: st.Timestamp,
	}
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// Ensure the gated views satisfy the gate contract.
var (
	_ stream.Enabler = (*heartbeat.Monitor)(nil)
	_ stream.Enabler = (*sysinfo.Stream)(nil)
	_ stream.Enabler = (*gpio.Stream)(nil)
)

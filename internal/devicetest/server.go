package devicetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
)

// Claims is the payload of the session tokens the fake device issues.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Server is an in-process stand-in for the device's REST and SSE API.
type Server struct {
	*httptest.Server

	secret []byte

	mu          sync.Mutex
	users       map[string]string
	gpioState   map[string]int
	usablePins  []int
	sysinfo     map[string]any
	commands    []map[string]int
	subscribers map[string]map[chan []byte]struct{}
	requests    []string
}

// NewServer starts a fake device. It is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:      []byte("devicetest-secret"),
		users:       map[string]string{},
		gpioState:   map[string]int{},
		sysinfo:     map[string]any{},
		subscribers: map[string]map[chan []byte]struct{}{},
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/user", s.requireAuth(s.handleUser)).Methods(http.MethodGet)
	api.HandleFunc("/auth/update_password", s.requireAuth(s.handleUpdatePassword)).Methods(http.MethodPost)
	api.HandleFunc("/gpio", s.requireAuth(s.handleGPIO)).Methods(http.MethodGet)
	api.HandleFunc("/gpio", s.requireAuth(s.handleGPIOCommand)).Methods(http.MethodPost)
	api.HandleFunc("/gpio/usable_pins", s.requireAuth(s.handleUsablePins)).Methods(http.MethodGet)
	api.HandleFunc("/sysinfo", s.requireAuth(s.handleSysinfo)).Methods(http.MethodGet)
	api.HandleFunc("/gpio/stream", s.requireAuth(s.handleStream)).Methods(http.MethodGet)
	api.HandleFunc("/sysinfo/stream", s.requireAuth(s.handleStream)).Methods(http.MethodGet)
	api.HandleFunc("/heartbeat", s.requireAuth(s.handleStream)).Methods(http.MethodGet)
	return r
}

// AddUser registers an account.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// Password returns the stored password for username.
func (s *Server) Password(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username]
}

// Token mints a session token for username.
func (s *Server) Token(username string) string {
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("devicetest: sign token: %v", err))
	}
	return signed
}

// SetGPIO replaces the reported pin states and usable pins.
func (s *Server) SetGPIO(state map[string]int, usable []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpioState = state
	s.usablePins = usable
}

// SetSysinfo replaces the aggregate telemetry snapshot.
func (s *Server) SetSysinfo(v map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sysinfo = v
}

// Commands returns the GPIO commands received so far.
func (s *Server) Commands() []map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]int(nil), s.commands...)
}

// Requests returns "METHOD /path" for every request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Subscribers returns how many streams are connected to path, for example
// "/api/v1/heartbeat".
func (s *Server) Subscribers(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[path])
}

// Publish sends v, JSON-encoded, to every stream connected to path.
func (s *Server) Publish(path string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("devicetest: encode event: %v", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers[path] {
		select {
		case ch <- raw:
		default:
		}
	}
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("jwt")
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (interface{}, error) {
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}
		s.mu.Lock()
		_, known := s.users[claims.Username]
		s.mu.Unlock()
		if !known {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}
		next(w, r, claims.Username)
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad request"})
		return
	}
	s.mu.Lock()
	password, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || password != req.Password {
		writeJSON(w, http.StatusOK, map[string]any{"auth": false, "message": "Invalid username or password"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "jwt", Value: s.Token(req.Username), Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"auth": true, "message": "Login successful"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad request"})
		return
	}
	s.mu.Lock()
	_, exists := s.users[req.Username]
	if !exists {
		s.users[req.Username] = req.Password
	}
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusOK, map[string]any{"status": "failure", "message": "User already exists"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "User created"})
}

func (s *Server) handleUser(w http.ResponseWriter, _ *http.Request, username string) {
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"username": username}})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request, username string) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad request"})
		return
	}
	s.mu.Lock()
	ok := s.users[username] == req.CurrentPassword
	if ok {
		s.users[username] = req.NewPassword
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "failure", "message": "Current password is incorrect"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Password updated"})
}

func (s *Server) handleGPIO(w http.ResponseWriter, _ *http.Request, _ string) {
	s.mu.Lock()
	state := make(map[string]int, len(s.gpioState))
	for k, v := range s.gpioState {
		state[k] = v
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGPIOCommand(w http.ResponseWriter, r *http.Request, _ string) {
	var cmd map[string]int
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad request"})
		return
	}
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	for k, v := range cmd {
		s.gpioState[k] = v
	}
	s.mu.Unlock()
	s.Publish("/api/v1/gpio/stream", cmd)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (s *Server) handleUsablePins(w http.ResponseWriter, _ *http.Request, _ string) {
	s.mu.Lock()
	pins := append([]int{}, s.usablePins...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, pins)
}

func (s *Server) handleSysinfo(w http.ResponseWriter, _ *http.Request, _ string) {
	s.mu.Lock()
	info := s.sysinfo
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, _ string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	path := r.URL.Path
	ch := make(chan []byte, 16)
	s.mu.Lock()
	if s.subscribers[path] == nil {
		s.subscribers[path] = map[chan []byte]struct{}{}
	}
	s.subscribers[path][ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subscribers[path], ch)
		s.mu.Unlock()
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

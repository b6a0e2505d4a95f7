package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pidash/internal/endpoint"
)

type call struct {
	method string
	path   string
	body   any
}

// fakeAPI answers Get/Post from canned JSON replies keyed by path.
type fakeAPI struct {
	replies map[string]string
	errs    map[string]error
	calls   []call
}

func (f *fakeAPI) reply(path string, dest any) error {
	if err := f.errs[path]; err != nil {
		return err
	}
	raw, ok := f.replies[path]
	if !ok {
		return &endpoint.APIError{Status: http.StatusNotFound, Path: path}
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (f *fakeAPI) Get(_ context.Context, path string, dest any) error {
	f.calls = append(f.calls, call{method: http.MethodGet, path: path})
	return f.reply(path, dest)
}

func (f *fakeAPI) Post(_ context.Context, path string, body, dest any) error {
	f.calls = append(f.calls, call{method: http.MethodPost, path: path, body: body})
	return f.reply(path, dest)
}

type memTokens struct {
	token   string
	removed int
}

func (m *memTokens) Token() string { return m.token }
func (m *memTokens) Remove() error { m.removed++; m.token = ""; return nil }

func TestService_Endpoints(t *testing.T) {
	api := &fakeAPI{replies: map[string]string{
		LoginPath:          `{"auth":true,"message":"Login successful"}`,
		RegisterPath:       `{"status":"success","message":"User created"}`,
		UpdatePasswordPath: `{"status":"failure","message":"Wrong password"}`,
		UserDataPath:       `{"user":{"username":"someuser","id":7}}`,
	}}
	svc := NewService(api)
	ctx := context.Background()

	res, err := svc.Authenticate(ctx, "someuser", "P@$$w0rD!")
	require.NoError(t, err)
	assert.Equal(t, Result{Success: true, Message: "Login successful"}, res)

	res, err = svc.CreateUser(ctx, "someuser", "P@$$w0rD!")
	require.NoError(t, err)
	assert.Equal(t, Result{Success: true, Message: "User created"}, res)

	res, err = svc.ChangePassword(ctx, "P@$$w0rD!", "N3wP@$$w0rD!")
	require.NoError(t, err)
	assert.Equal(t, Result{Success: false, Message: "Wrong password"}, res)

	user, err := svc.GetUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "someuser", user.Username)
	assert.JSONEq(t, `{"username":"someuser","id":7}`, string(user.Raw))

	require.Len(t, api.calls, 4)
	assert.Equal(t, map[string]string{"username": "someuser", "password": "P@$$w0rD!"}, api.calls[0].body)
	assert.Equal(t, map[string]string{"currentPassword": "P@$$w0rD!", "newPassword": "N3wP@$$w0rD!"}, api.calls[2].body)
	assert.Equal(t, call{method: http.MethodGet, path: UserDataPath}, api.calls[3])
}

func TestService_NullUser(t *testing.T) {
	api := &fakeAPI{replies: map[string]string{UserDataPath: `{"user":null}`}}
	user, err := NewService(api).GetUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestService_RejectionPropagates(t *testing.T) {
	rejection := &endpoint.APIError{Status: http.StatusUnauthorized, Path: LoginPath, Body: []byte(`{"message":"nope"}`)}
	api := &fakeAPI{errs: map[string]error{LoginPath: rejection}}
	_, err := NewService(api).Authenticate(context.Background(), "u", "p")
	apiErr, ok := endpoint.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestStore_InitialState(t *testing.T) {
	s := NewStore(NewService(&fakeAPI{}), &memTokens{token: "tok"}, zerolog.Nop())
	assert.Equal(t, State{}, s.GetAuthState())
	assert.False(t, s.Ready())
}

func TestStore_CheckDerivesAuthentication(t *testing.T) {
	cases := []struct {
		name      string
		reply     string
		fail      bool
		token     string
		wantAuth  bool
		wantUser  bool
		wantToken string
		removed   int
	}{
		{name: "user and token", reply: `{"user":{"username":"u"}}`, token: "tok", wantAuth: true, wantUser: true, wantToken: "tok"},
		{name: "user without token", reply: `{"user":{"username":"u"}}`, token: "", wantUser: true},
		{name: "null user", reply: `{"user":null}`, token: "tok", wantToken: "tok"},
		{name: "check fails", fail: true, token: "tok", removed: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{replies: map[string]string{UserDataPath: tc.reply}}
			if tc.fail {
				api.errs = map[string]error{UserDataPath: errors.New("connection refused")}
			}
			tokens := &memTokens{token: tc.token}
			s := NewStore(NewService(api), tokens, zerolog.Nop())

			var seen []State
			s.OnChange(func(st State) { seen = append(seen, st) })
			s.CheckAuthState(context.Background())

			st := s.GetAuthState()
			assert.True(t, st.AuthCheckComplete)
			assert.Equal(t, tc.wantAuth, st.IsAuthenticated)
			assert.Equal(t, tc.wantUser, st.User != nil)
			assert.Equal(t, tc.wantToken, st.Token)
			assert.Equal(t, tc.removed, tokens.removed)
			assert.Equal(t, tc.wantAuth, s.Ready())
			require.Len(t, seen, 1)
			assert.Equal(t, st, seen[0])
		})
	}
}

func TestStore_LogoutClears(t *testing.T) {
	api := &fakeAPI{replies: map[string]string{UserDataPath: `{"user":{"username":"u"}}`}}
	tokens := &memTokens{token: "tok"}
	s := NewStore(NewService(api), tokens, zerolog.Nop())
	s.CheckAuthState(context.Background())
	require.True(t, s.GetAuthState().IsAuthenticated)

	s.OnLogout()
	st := s.GetAuthState()
	assert.Equal(t, State{AuthCheckComplete: true}, st)
	assert.Equal(t, 1, tokens.removed)
}

func TestStore_HandleLogin(t *testing.T) {
	t.Run("reconciles after answer", func(t *testing.T) {
		api := &fakeAPI{replies: map[string]string{
			LoginPath:    `{"auth":true,"message":"ok"}`,
			UserDataPath: `{"user":{"username":"u"}}`,
		}}
		s := NewStore(NewService(api), &memTokens{token: "tok"}, zerolog.Nop())
		res, err := s.HandleLogin(context.Background(), "u", "p")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, s.GetAuthState().IsAuthenticated)
		assert.Equal(t, UserDataPath, api.calls[1].path)
	})

	t.Run("rejected credentials still reconcile", func(t *testing.T) {
		api := &fakeAPI{
			replies: map[string]string{LoginPath: `{"auth":false,"message":"Invalid credentials"}`},
			errs:    map[string]error{UserDataPath: &endpoint.APIError{Status: http.StatusUnauthorized}},
		}
		s := NewStore(NewService(api), &memTokens{}, zerolog.Nop())
		res, err := s.HandleLogin(context.Background(), "u", "bad")
		require.NoError(t, err)
		assert.Equal(t, Result{Message: "Invalid credentials"}, res)
		st := s.GetAuthState()
		assert.True(t, st.AuthCheckComplete)
		assert.False(t, st.IsAuthenticated)
	})

	t.Run("transport failure propagates after check", func(t *testing.T) {
		api := &fakeAPI{errs: map[string]error{
			LoginPath:    errors.New("dial tcp: refused"),
			UserDataPath: errors.New("dial tcp: refused"),
		}}
		tokens := &memTokens{token: "stale"}
		s := NewStore(NewService(api), tokens, zerolog.Nop())
		_, err := s.HandleLogin(context.Background(), "u", "p")
		assert.ErrorContains(t, err, "refused")
		require.Len(t, api.calls, 2)
		assert.Equal(t, UserDataPath, api.calls[1].path)
		assert.Equal(t, State{AuthCheckComplete: true}, s.GetAuthState())
		assert.Equal(t, 1, tokens.removed)
	})

	t.Run("rejection status propagates after check", func(t *testing.T) {
		rejection := &endpoint.APIError{Status: http.StatusUnauthorized, Path: LoginPath, Body: []byte(`{"message":"Invalid"}`)}
		api := &fakeAPI{
			errs: map[string]error{LoginPath: rejection},
			replies: map[string]string{
				UserDataPath: `{"user":{"username":"u"}}`,
			},
		}
		s := NewStore(NewService(api), &memTokens{token: "tok"}, zerolog.Nop())
		_, err := s.HandleLogin(context.Background(), "u", "bad")
		var apiErr *endpoint.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

		// The check still ran and found the existing session.
		st := s.GetAuthState()
		assert.True(t, st.AuthCheckComplete)
		assert.True(t, st.IsAuthenticated)
	})
}

func TestStore_OnChangeNotifiesEveryListener(t *testing.T) {
	api := &fakeAPI{replies: map[string]string{UserDataPath: `{"user":{"username":"u"}}`}}
	s := NewStore(NewService(api), &memTokens{token: "tok"}, zerolog.Nop())

	var got []State
	s.OnChange(func(st State) { got = append(got, st) })
	s.OnChange(func(State) {
		// Registering from inside a listener must not deadlock.
		s.OnChange(func(State) {})
	})

	s.CheckAuthState(context.Background())
	s.OnLogout()

	require.Len(t, got, 2)
	assert.True(t, got[0].IsAuthenticated)
	assert.Equal(t, State{AuthCheckComplete: true}, got[1])
}

func TestValidatePasswords(t *testing.T) {
	cases := []struct {
		name     string
		password string
		confirm  string
		want     PasswordErrors
	}{
		{name: "too short", password: "pA$SwRd", confirm: "pA$SwRd", want: PasswordErrors{Password: MsgPasswordLength}},
		{name: "no uppercase", password: "password1234!", confirm: "password1234!", want: PasswordErrors{Password: MsgPasswordComplexity}},
		{name: "no digit", password: "PASSword!", confirm: "PASSword!", want: PasswordErrors{Password: MsgPasswordComplexity}},
		{name: "no special", password: "PASSword1234", confirm: "PASSword1234", want: PasswordErrors{Password: MsgPasswordComplexity}},
		{name: "disallowed character", password: "PASSword12#!", confirm: "PASSword12#!", want: PasswordErrors{Password: MsgPasswordComplexity}},
		{name: "mismatch", password: "P@$$w0rD!", confirm: "N3wP@$$w0rD!", want: PasswordErrors{Confirm: MsgPasswordMismatch}},
		{name: "short and mismatch", password: "a", confirm: "b", want: PasswordErrors{Password: MsgPasswordLength, Confirm: MsgPasswordMismatch}},
		{name: "short multibyte", password: "ééé1A!x", confirm: "ééé1A!x", want: PasswordErrors{Password: MsgPasswordLength}},
		{name: "astral runes count twice", password: "😀😀😀😀", confirm: "😀😀😀😀", want: PasswordErrors{Password: MsgPasswordComplexity}},
		{name: "valid", password: "P@$$w0rD!", confirm: "P@$$w0rD!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, errs := ValidatePasswords(tc.password, tc.confirm)
			assert.Equal(t, tc.want, errs)
			assert.Equal(t, tc.want == PasswordErrors{}, ok)
		})
	}
}

func TestHandlers(t *testing.T) {
	ctx := context.Background()

	t.Run("signup validates before calling", func(t *testing.T) {
		api := &fakeAPI{}
		res := SignupHandler{Service: NewService(api)}.Submit(ctx, "u", "short", "short")
		assert.False(t, res.Success)
		assert.Equal(t, MsgPasswordLength, res.Errors.Password)
		assert.Empty(t, api.calls)
	})

	t.Run("signup reports message on username", func(t *testing.T) {
		api := &fakeAPI{replies: map[string]string{RegisterPath: `{"status":"failure","message":"User already exists"}`}}
		res := SignupHandler{Service: NewService(api)}.Submit(ctx, "u", "P@$$w0rD!", "P@$$w0rD!")
		assert.Equal(t, FormResult{Errors: FieldErrors{Username: "User already exists"}}, res)
	})

	t.Run("login transport failure", func(t *testing.T) {
		api := &fakeAPI{errs: map[string]error{LoginPath: errors.New("refused")}}
		s := NewStore(NewService(api), &memTokens{}, zerolog.Nop())
		res := LoginHandler{Store: s}.Submit(ctx, "u", "p")
		assert.Equal(t, FormResult{Errors: FieldErrors{Message: MsgConnectionError}}, res)
	})

	t.Run("login error body message", func(t *testing.T) {
		rejection := &endpoint.APIError{Status: http.StatusUnauthorized, Body: []byte(`{"message":"Invalid credentials"}`)}
		api := &fakeAPI{errs: map[string]error{LoginPath: rejection}}
		s := NewStore(NewService(api), &memTokens{}, zerolog.Nop())
		res := LoginHandler{Store: s}.Submit(ctx, "u", "p")
		assert.Equal(t, "Invalid credentials", res.Errors.Message)
	})

	t.Run("change password", func(t *testing.T) {
		api := &fakeAPI{replies: map[string]string{UpdatePasswordPath: `{"status":"success","message":"Password updated"}`}}
		res := ChangePasswordHandler{Service: NewService(api)}.Submit(ctx, "P@$$w0rD!", "N3wP@$$w0rD!", "N3wP@$$w0rD!")
		assert.Equal(t, FormResult{Success: true, Errors: FieldErrors{Message: "Password updated"}}, res)
	})
}

func TestDecodeClaims(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "someuser",
		"id":       7,
	}).SignedString([]byte("device-secret"))
	require.NoError(t, err)

	claims, err := DecodeClaims(signed)
	require.NoError(t, err)
	assert.Equal(t, "someuser", claims["username"])
	assert.Equal(t, float64(7), claims["id"])

	_, err = DecodeClaims("")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = DecodeClaims("not-a-token")
	assert.Error(t, err)
}

func TestCookieTokenStore(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	site, err := url.Parse("http://device.local:8080/api")
	require.NoError(t, err)
	sessionPath := filepath.Join(t.TempDir(), "state", "session.toml")

	store := NewCookieTokenStore(jar, site, sessionPath, zerolog.Nop())
	assert.Empty(t, store.Token())

	jar.SetCookies(site, []*http.Cookie{{Name: TokenCookie, Value: "abc.def.ghi", Path: "/"}})
	assert.Equal(t, "abc.def.ghi", store.Token())
	require.NoError(t, store.Persist())

	// A fresh jar picks the token back up from the session file.
	fresh, err := cookiejar.New(nil)
	require.NoError(t, err)
	restored := NewCookieTokenStore(fresh, site, sessionPath, zerolog.Nop())
	restored.Restore()
	assert.Equal(t, "abc.def.ghi", restored.Token())

	require.NoError(t, restored.Remove())
	assert.Empty(t, restored.Token())
	assert.NoFileExists(t, sessionPath)
	require.NoError(t, restored.Remove())
}

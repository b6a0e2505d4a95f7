package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pidash/internal/auth"
	"github.com/five82/pidash/internal/devicetest"
	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/gpio"
	"github.com/five82/pidash/internal/heartbeat"
	"github.com/five82/pidash/internal/sysinfo"
)

type fixture struct {
	srv  *devicetest.Server
	sub  *devicetest.Subscriber
	sess *Session
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	srv := devicetest.NewServer(t)
	srv.AddUser("pi", "Raspberry1!")
	srv.SetGPIO(map[string]int{"17": 2, "27": 0}, []int{17, 27})
	srv.SetSysinfo(map[string]any{
		"uptime":    120.5,
		"localtime": 1700000000000,
		"cpu_info":  map[string]any{"cpu_temp": 48.25},
		"os_info":   map[string]any{"hostname": "raspberrypi", "host_ip": []string{"10.0.0.7"}},
	})

	client, err := endpoint.NewClient(srv.URL)
	require.NoError(t, err)
	sub := &devicetest.Subscriber{}
	sess := New(Deps{
		API:        client,
		Subscriber: sub,
		Tokens:     auth.NewCookieTokenStore(client.Jar(), client.BaseURL(), "", zerolog.Nop()),
		Log:        zerolog.Nop(),
	})
	t.Cleanup(sess.Close)
	return fixture{srv: srv, sub: sub, sess: sess}
}

func (f fixture) login(t *testing.T) {
	t.Helper()
	res := f.sess.Login(context.Background(), "pi", "Raspberry1!")
	require.True(t, res.Success, "login failed: %+v", res.Errors)
}

func TestSession_StartSignedOut(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())

	st := f.sess.Auth().GetAuthState()
	assert.True(t, st.AuthCheckComplete)
	assert.False(t, st.IsAuthenticated)
	assert.Equal(t, 0, f.sub.OpensFor(heartbeat.Path), "heartbeat waits for a signed-in user")
	assert.False(t, f.sess.Heartbeat().Active())
}

func TestSession_LoginOpensHeartbeat(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())
	f.login(t)

	st := f.sess.Auth().GetAuthState()
	require.True(t, st.IsAuthenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, "pi", st.User.Username)
	assert.NotEmpty(t, st.Token)

	require.Equal(t, 1, f.sub.OpensFor(heartbeat.Path))
	f.sub.LastFor(heartbeat.Path).Open()
	assert.True(t, f.sess.Heartbeat().Connected())
}

func TestSession_LoginRejected(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())

	before := countRequests(f.srv, "GET /api/v1/auth/user")
	res := f.sess.Login(context.Background(), "pi", "wrong")
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid username or password", res.Errors.Message)
	assert.False(t, f.sess.Auth().Ready())
	assert.True(t, f.sess.Auth().GetAuthState().AuthCheckComplete)
	assert.Equal(t, before+1, countRequests(f.srv, "GET /api/v1/auth/user"))
	assert.Equal(t, 0, f.sub.OpensFor(heartbeat.Path))
}

func TestSession_LogoutClosesGatedStreams(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())
	f.login(t)
	require.NoError(t, f.sess.OpenSystem(context.Background()))
	require.Equal(t, 1, f.sub.OpensFor(sysinfo.StreamPath))

	beat := f.sub.LastFor(heartbeat.Path)
	sys := f.sub.LastFor(sysinfo.StreamPath)
	f.sess.Logout()

	assert.Equal(t, 1, beat.CloseCount())
	assert.Equal(t, 1, sys.CloseCount())
	assert.Empty(t, f.sess.Auth().GetAuthState().Token)

	f.login(t)
	assert.Equal(t, 2, f.sub.OpensFor(heartbeat.Path))
	assert.Equal(t, 2, f.sub.OpensFor(sysinfo.StreamPath), "mounted view resumes after sign-in")
}

func TestSession_SystemSnapshot(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())
	f.login(t)
	require.NoError(t, f.sess.OpenSystem(context.Background()))

	snap, err := f.sess.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.System.Open)
	assert.True(t, snap.System.Completed)
	assert.True(t, snap.System.Streaming)
	require.NotNil(t, snap.System.Time.Uptime)
	assert.InDelta(t, 120.5, *snap.System.Time.Uptime, 0.001)
	assert.Equal(t, "raspberrypi", snap.System.General.Device.Hostname)
	require.NotNil(t, snap.System.General.CPU.CPUTemp)

	f.sub.LastFor(sysinfo.StreamPath).Emit(map[string]any{"uptime": 130.0})
	f.sub.LastFor(sysinfo.StreamPath).Emit(map[string]any{"mem_info": map[string]any{"total_mem": 4000, "free_mem": 1000, "percent": 0.75}})

	snap, err = f.sess.Snapshot()
	require.NoError(t, err)
	assert.InDelta(t, 130.0, *snap.System.Time.Uptime, 0.001)
	assert.InDelta(t, 0.75, snap.System.General.Memory.Percent, 0.001)
	assert.InDelta(t, 3000.0, snap.System.General.Memory.Used(), 0.001)
	assert.Equal(t, "raspberrypi", snap.System.General.Device.Hostname, "merge keeps earlier keys")
}

func TestSession_OpenSystemFailureStartsNoStream(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())

	err := f.sess.OpenSystem(context.Background())
	require.Error(t, err, "snapshot requires a session")
	assert.Equal(t, 0, f.sub.OpensFor(sysinfo.StreamPath))

	snap, _ := f.sess.Snapshot()
	assert.True(t, snap.System.Open)
	assert.Error(t, snap.System.Err)
	assert.False(t, snap.System.Streaming)
}

func TestSession_CloseSystemRefetches(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())
	f.login(t)
	require.NoError(t, f.sess.OpenSystem(context.Background()))
	first := f.sub.LastFor(sysinfo.StreamPath)

	f.sess.CloseSystem()
	assert.Equal(t, 1, first.CloseCount())
	snap, _ := f.sess.Snapshot()
	assert.False(t, snap.System.Open)

	require.NoError(t, f.sess.OpenSystem(context.Background()))
	assert.Equal(t, 2, f.sub.OpensFor(sysinfo.StreamPath))
	assert.Equal(t, 2, countRequests(f.srv, "GET /api/v1/sysinfo"))
}

func TestSession_GPIOEditAndSubmit(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())
	f.login(t)
	require.NoError(t, f.sess.OpenGPIO(context.Background()))

	snap, err := f.sess.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []int{17, 27}, snap.GPIO.UsablePins)
	assert.Equal(t, gpio.FlagOutput, snap.GPIO.Pins[17])
	assert.False(t, snap.GPIO.CanSubmit)

	f.sess.TogglePin(27, gpio.FieldUsed)
	f.sess.TogglePin(27, gpio.FieldOutput)
	f.sess.TogglePin(27, gpio.FieldHigh)

	snap, _ = f.sess.Snapshot()
	assert.True(t, snap.GPIO.CanSubmit)
	assert.Equal(t, gpio.Control{Used: true, Output: true, High: true}, snap.GPIO.Controls[27])

	cmd, err := f.sess.SubmitGPIO(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gpio.Command{"27": gpio.FlagOutput | gpio.FlagHigh}, cmd)
	assert.Equal(t, []map[string]int{{"27": 3}}, f.srv.Commands())

	f.sub.LastFor(gpio.StreamPath).Emit(map[string]int{"27": 3})
	snap, _ = f.sess.Snapshot()
	assert.Equal(t, gpio.FlagOutput|gpio.FlagHigh, snap.GPIO.Pins[27])
	assert.Equal(t, gpio.FlagOutput, snap.GPIO.Pins[17])
}

func TestSession_SubmitWithoutView(t *testing.T) {
	f := newFixture(t)
	_, err := f.sess.SubmitGPIO(context.Background())
	assert.ErrorIs(t, err, errNotOpen)
}

func TestSession_Account(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())
	f.login(t)
	require.NoError(t, f.sess.OpenAccount(context.Background()))

	snap, err := f.sess.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, snap.Account.User)
	assert.Equal(t, "pi", snap.Account.User.Username)
	assert.Equal(t, "pi", snap.Account.Claims["username"])

	res := f.sess.ChangePassword(context.Background(), "Raspberry1!", "Blueberry2@", "Blueberry2@")
	assert.True(t, res.Success)
	assert.Equal(t, "Blueberry2@", f.srv.Password("pi"))

	f.sess.CloseAccount()
	snap, _ = f.sess.Snapshot()
	assert.False(t, snap.Account.Open)
}

func TestSession_Signup(t *testing.T) {
	f := newFixture(t)

	res := f.sess.Signup(context.Background(), "pi", "Another1!", "Another1!")
	assert.False(t, res.Success)
	assert.Equal(t, "User already exists", res.Errors.Username)

	res = f.sess.Signup(context.Background(), "guest", "short", "short")
	assert.False(t, res.Success)
	assert.Equal(t, auth.MsgPasswordLength, res.Errors.Password)

	res = f.sess.Signup(context.Background(), "guest", "Another1!", "Another1!")
	assert.True(t, res.Success)
	assert.Equal(t, "Another1!", f.srv.Password("guest"))
}

func TestSession_CloseRejectsReopen(t *testing.T) {
	f := newFixture(t)
	f.sess.Start(context.Background())
	f.login(t)
	beat := f.sub.LastFor(heartbeat.Path)

	f.sess.Close()
	assert.Equal(t, 1, beat.CloseCount())
	assert.ErrorIs(t, f.sess.OpenSystem(context.Background()), errClosed)
	assert.ErrorIs(t, f.sess.OpenGPIO(context.Background()), errClosed)
	assert.ErrorIs(t, f.sess.OpenAccount(context.Background()), errClosed)
}

func TestSession_LiveSSE(t *testing.T) {
	srv := devicetest.NewServer(t)
	srv.AddUser("pi", "Raspberry1!")
	srv.SetGPIO(map[string]int{"17": 0}, []int{17})

	client, err := endpoint.NewClient(srv.URL)
	require.NoError(t, err)
	sess := New(Deps{
		API:        client,
		Subscriber: endpoint.NewSSESubscriber(client),
		Tokens:     auth.NewCookieTokenStore(client.Jar(), client.BaseURL(), "", zerolog.Nop()),
		Log:        zerolog.Nop(),
	})
	t.Cleanup(sess.Close)

	sess.Start(context.Background())
	res := sess.Login(context.Background(), "pi", "Raspberry1!")
	require.True(t, res.Success)

	require.Eventually(t, sess.Heartbeat().Connected, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, sess.OpenGPIO(context.Background()))
	require.Eventually(t, func() bool {
		return srv.Subscribers("/"+gpio.StreamPath) == 1
	}, 5*time.Second, 20*time.Millisecond)

	srv.Publish("/"+gpio.StreamPath, map[string]int{"17": 3})
	require.Eventually(t, func() bool {
		snap, err := sess.Snapshot()
		return err == nil && snap.GPIO.Pins[17] == gpio.FlagOutput|gpio.FlagHigh
	}, 5*time.Second, 20*time.Millisecond)
}

func countRequests(srv *devicetest.Server, want string) int {
	n := 0
	for _, r := range srv.Requests() {
		if r == want {
			n++
		}
	}
	return n
}

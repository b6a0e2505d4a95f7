package gpio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pidash/internal/devicetest"
	"github.com/five82/pidash/internal/endpoint"
	"github.com/five82/pidash/internal/stream"
)

type fakeAPI struct {
	replies map[string]string
	err     error
	posts   []string
}

func (f *fakeAPI) Get(_ context.Context, path string, dest any) error {
	raw, ok := f.replies[path]
	if !ok {
		return &endpoint.APIError{Status: http.StatusNotFound, Path: path}
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (f *fakeAPI) Post(_ context.Context, path string, body, dest any) error {
	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	f.posts = append(f.posts, path+" "+string(raw))
	return json.Unmarshal([]byte(`{"status":"success"}`), dest)
}

func TestFlags(t *testing.T) {
	assert.False(t, Flags(0).High())
	assert.False(t, Flags(0).Output())
	assert.Equal(t, "IN", Flags(1).Mode())
	assert.True(t, Flags(1).High())
	assert.Equal(t, "OUT", Flags(2).Mode())
	assert.True(t, Flags(3).High())
	assert.True(t, Flags(3).Output())
}

func TestFetchInfo(t *testing.T) {
	api := &fakeAPI{replies: map[string]string{
		Path:           `{"0":2,"4":3}`,
		UsablePinsPath: `[0,1,4]`,
	}}
	info, err := FetchInfo(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4}, info.UsablePins)

	pins, err := DecodePins(info.State)
	require.NoError(t, err)
	assert.Equal(t, Pins{0: 2, 4: 3}, pins)
	assert.Equal(t, []int{0, 4}, pins.Numbers())

	delete(api.replies, UsablePinsPath)
	_, err = FetchInfo(context.Background(), api)
	assert.ErrorContains(t, err, "fetch usablePins")
}

func TestController_Payloads(t *testing.T) {
	api := &fakeAPI{}
	c := NewController(api, zerolog.Nop())
	ctx := context.Background()

	assert.True(t, c.DisableSubmit())
	cmd, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Empty(t, api.posts, "nothing to submit")

	c.HandleChange(0, Control{Used: true, Output: true})
	c.HandleChange(1, Control{Used: true, High: true})
	assert.False(t, c.DisableSubmit())
	assert.Equal(t, Control{Used: true, Output: true}, c.ControlState(0))
	assert.Equal(t, Control{}, c.ControlState(7))

	_, err = c.Submit(ctx)
	require.NoError(t, err)

	c.HandleChange(1, Control{})
	cmd, err = c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, Command{"0": 2}, cmd)

	require.Len(t, api.posts, 2)
	assert.Equal(t, Path+` {"0":2,"1":1}`, api.posts[0])
	assert.Equal(t, Path+` {"0":2}`, api.posts[1])

	c.HandleChange(0, Control{})
	assert.True(t, c.DisableSubmit())
	_, err = c.Submit(ctx)
	require.NoError(t, err)
	assert.Len(t, api.posts, 2)
}

func TestController_SubmitError(t *testing.T) {
	api := &fakeAPI{err: errors.New("refused")}
	c := NewController(api, zerolog.Nop())
	c.HandleChange(3, Control{Used: true, Output: true, High: true})

	cmd, err := c.Submit(context.Background())
	assert.ErrorContains(t, err, "send gpio command")
	assert.Equal(t, Command{"3": 3}, cmd)
	assert.Equal(t, Control{Used: true, Output: true, High: true}, c.ControlState(3), "edits are kept")
}

func TestController_Toggle(t *testing.T) {
	c := NewController(&fakeAPI{}, zerolog.Nop())

	assert.Equal(t, Control{}, c.Toggle(5, FieldOutput), "switches stay off until the pin is used")
	assert.Equal(t, Control{Used: true}, c.Toggle(5, FieldUsed))
	assert.Equal(t, Control{Used: true, Output: true}, c.Toggle(5, FieldOutput))
	assert.Equal(t, Control{Used: true, Output: true, High: true}, c.Toggle(5, FieldHigh))
	assert.Equal(t, Control{}, c.Toggle(5, FieldUsed), "unchecking used clears output and high")
}

func TestStream_MergesPins(t *testing.T) {
	sub := &devicetest.Subscriber{}
	s := NewStream(sub, nil, stream.Doc{"0": []byte(`2`), "1": []byte(`0`)}, zerolog.Nop())
	s.SetEnabled(true)
	require.Equal(t, []string{StreamPath}, sub.Paths())

	sub.Last().Emit(map[string]int{"1": 3})
	pins, err := s.Pins()
	require.NoError(t, err)
	assert.Equal(t, Pins{0: 2, 1: 3}, pins)

	s.SetEnabled(false)
	assert.False(t, s.Active())
	pins, err = s.Pins()
	require.NoError(t, err)
	assert.Equal(t, Pins{0: 2, 1: 3}, pins, "data survives disable")
}

func TestLayout(t *testing.T) {
	require.Len(t, Layout, 40)
	assert.Equal(t, HeaderPin{Label: "3V3", Type: PinPower}, Layout[0])
	assert.Equal(t, HeaderPin{Label: "GPIO 21", Type: PinGPIO, GPIO: 21}, Layout[39])

	left, right := Columns()
	assert.Len(t, left, 20)
	assert.Len(t, right, 20)
	assert.Equal(t, "5V", right[0].Label)

	seen := map[int]bool{}
	for _, p := range Layout {
		if p.Type == PinGPIO {
			assert.False(t, seen[p.GPIO], "gpio %d listed twice", p.GPIO)
			seen[p.GPIO] = true
		}
	}
	assert.Len(t, seen, 26)
}

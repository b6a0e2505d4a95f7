package request

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func (f *fakeGetter) Get(_ context.Context, path string, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	if err, ok := f.failures[path]; ok {
		return err
	}
	return json.Unmarshal([]byte(f.responses[path]), dest)
}

func (f *fakeGetter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var twoEndpoints = Endpoints{
	{Label: "some_endpoint", Path: "path/to/some/endpoint"},
	{Label: "another_endpoint", Path: "path/to/another/endpoint"},
}

func newGetter() *fakeGetter {
	return &fakeGetter{
		responses: map[string]string{
			"path/to/some/endpoint":    `{"data":"some data"}`,
			"path/to/another/endpoint": `{"data":"another data"}`,
			"path/to/third/endpoint":   `{"data":"third data"}`,
		},
		failures: map[string]error{},
	}
}

func TestDataRequest_InitialState(t *testing.T) {
	before := time.Now()
	r := NewDataRequest(newGetter(), zerolog.Nop())

	st := r.State()
	assert.False(t, st.Completed)
	assert.NoError(t, st.Err)
	assert.Empty(t, st.Data)
	assert.False(t, st.Timestamp.Before(before))
}

func TestDataRequest_AllSucceed(t *testing.T) {
	g := newGetter()
	r := NewDataRequest(g, zerolog.Nop())

	before := time.Now()
	require.True(t, r.Sync(context.Background(), twoEndpoints))

	st := r.State()
	assert.True(t, st.Completed)
	assert.NoError(t, st.Err)
	require.Len(t, st.Data, 2)
	assert.JSONEq(t, `{"data":"some data"}`, string(st.Data["some_endpoint"]))
	assert.JSONEq(t, `{"data":"another data"}`, string(st.Data["another_endpoint"]))
	assert.False(t, st.Timestamp.Before(before))

	var decoded struct {
		Data string `json:"data"`
	}
	ok, err := st.Decode("another_endpoint", &decoded)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "another data", decoded.Data)
}

func TestDataRequest_FailFast(t *testing.T) {
	endpoints := Endpoints{
		{Label: "first", Path: "path/to/some/endpoint"},
		{Label: "second", Path: "path/to/another/endpoint"},
		{Label: "third", Path: "path/to/third/endpoint"},
	}

	tests := []struct {
		name      string
		failAt    string
		wantCalls int
		wantKeys  []string
	}{
		{"first fails", "path/to/some/endpoint", 1, nil},
		{"second fails", "path/to/another/endpoint", 2, []string{"first"}},
		{"third fails", "path/to/third/endpoint", 3, []string{"first", "second"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGetter()
			rejection := errors.New("boom")
			g.failures[tt.failAt] = rejection

			r := NewDataRequest(g, zerolog.Nop())
			r.Sync(context.Background(), endpoints)

			st := r.State()
			assert.True(t, st.Completed)
			assert.ErrorIs(t, st.Err, rejection)
			assert.Equal(t, tt.wantCalls, g.callCount(), "later endpoints must not be attempted")
			assert.Len(t, st.Data, len(tt.wantKeys))
			for _, k := range tt.wantKeys {
				assert.Contains(t, st.Data, k)
			}
		})
	}
}

func TestDataRequest_RefetchOnlyOnKeyChange(t *testing.T) {
	g := newGetter()
	r := NewDataRequest(g, zerolog.Nop())

	require.True(t, r.Sync(context.Background(), twoEndpoints))
	assert.Equal(t, 2, g.callCount())

	// Same shape, new slice: no refetch.
	same := append(Endpoints(nil), twoEndpoints...)
	assert.False(t, r.Sync(context.Background(), same))
	assert.Equal(t, 2, g.callCount())

	changed := Endpoints{{Label: "third", Path: "path/to/third/endpoint"}}
	assert.True(t, r.Sync(context.Background(), changed))
	assert.Equal(t, 3, g.callCount())
	assert.Contains(t, r.State().Data, "third")
}

func TestDataRequest_NoRetryAfterFailure(t *testing.T) {
	g := newGetter()
	g.failures["path/to/some/endpoint"] = errors.New("down")
	r := NewDataRequest(g, zerolog.Nop())

	r.Sync(context.Background(), twoEndpoints)
	delete(g.failures, "path/to/some/endpoint")
	assert.False(t, r.Sync(context.Background(), twoEndpoints))
	assert.Error(t, r.State().Err)
}

func TestDataRequest_EmptySetIsIgnored(t *testing.T) {
	r := NewDataRequest(newGetter(), zerolog.Nop())
	assert.False(t, r.Sync(context.Background(), nil))
	assert.False(t, r.State().Completed)
}

func TestEndpointsKey(t *testing.T) {
	assert.Equal(t, "some_endpoint=path/to/some/endpoint&another_endpoint=path/to/another/endpoint", twoEndpoints.Key())
	assert.NotEqual(t, twoEndpoints.Key(), Endpoints{twoEndpoints[1], twoEndpoints[0]}.Key())
}

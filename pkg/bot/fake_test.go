package bot

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-process Bot API. Handlers are keyed by method name and
// every call is recorded.
type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]func(body map[string]any) (int, any)
	calls    []fakeCall
}

type fakeCall struct {
	Method string
	Body   map[string]any
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{t: t, handlers: make(map[string]func(map[string]any) (int, any))}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	// /bot<token>/<method>
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	method := parts[len(parts)-1]

	body := map[string]any{}
	data, _ := io.ReadAll(r.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Method: method, Body: body})
	h, ok := f.handlers[method]
	f.mu.Unlock()

	status, payload := http.StatusOK, any(map[string]any{"ok": true, "result": true})
	if ok {
		status, payload = h(body)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (f *fakeAPI) on(method string, h func(body map[string]any) (int, any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeAPI) callsTo(method string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) client(t *testing.T, opts ...Option) *Client {
	c, err := New(Config{Token: "123:abc", APIURL: f.server.URL}, opts...)
	require.NoError(t, err)
	return c
}

func ok(result any) (int, any) {
	return http.StatusOK, map[string]any{"ok": true, "result": result}
}

func fail(code int, description string) (int, any) {
	return code, map[string]any{"ok": false, "error_code": code, "description": description}
}

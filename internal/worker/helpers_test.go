package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/aniview/aniview/internal/adapters/config"
	"github.com/aniview/aniview/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (l nopLogger) With(fields ...any) domain.Logger                   { return l }

type staticConfigProvider struct {
	cfg *config.Config
}

func (p *staticConfigProvider) Get() *config.Config { return p.cfg }

func testConfigProvider() config.Provider {
	return &staticConfigProvider{cfg: &config.Config{
		Worker: config.WorkerConfig{
			CacheVersion: "aniview-v3",
			CacheDir:     "worker-cache",
		},
	}}
}

type recordedRequest struct {
	Method string
	URI    string
	Header http.Header
}

// fakeFetcher simulates the live network. When offline (or a path is in
// failPaths) every request errors; otherwise scripted responses are served
// by "METHOD URI" key, with a generic 200 for anything unscripted.
type fakeFetcher struct {
	mu        sync.Mutex
	offline   bool
	failPaths map[string]bool
	responses map[string]*CachedResponse
	requests  []recordedRequest
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		failPaths: make(map[string]bool),
		responses: make(map[string]*CachedResponse),
	}
}

func (f *fakeFetcher) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

func (f *fakeFetcher) script(method, uri string, resp *CachedResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+uri] = resp
}

func (f *fakeFetcher) Do(ctx context.Context, req *FetchRequest) (*CachedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	header := http.Header{}
	for name, values := range req.Header {
		header[name] = append([]string(nil), values...)
	}
	uri := req.URL.RequestURI()
	f.requests = append(f.requests, recordedRequest{Method: req.Method, URI: uri, Header: header})

	if f.offline || f.failPaths[req.URL.Path] {
		return nil, fmt.Errorf("dial tcp: connection refused (%s)", uri)
	}
	if resp, ok := f.responses[req.Method+" "+uri]; ok {
		return resp, nil
	}
	return &CachedResponse{
		Status:   200,
		Header:   jsonHeader(),
		Body:     []byte(`{"path":"` + uri + `"}`),
		StoredAt: time.Now().UTC(),
	}, nil
}

func (f *fakeFetcher) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeFetcher) countFor(method, uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Method == method && r.URI == uri {
			n++
		}
	}
	return n
}

// fakePages records worker-to-page traffic.
type fakePages struct {
	mu      sync.Mutex
	notices []Notice
	opened  []string
	claims  int
}

func (p *fakePages) Broadcast(notice Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice)
}

func (p *fakePages) FocusOrOpen(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, url)
	return nil
}

func (p *fakePages) Claim() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.claims++
}

func (p *fakePages) noticesOf(noticeType string) []Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Notice
	for _, n := range p.notices {
		if n.Type == noticeType {
			out = append(out, n)
		}
	}
	return out
}

func (p *fakePages) claimCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.claims
}

// fakeNotifier records shown notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	shown []Notification
}

func (n *fakeNotifier) Show(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, notification)
	return nil
}

func (n *fakeNotifier) last(t *testing.T) Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.shown)
	return n.shown[len(n.shown)-1]
}

// fakeRegistrar records sync registrations.
type fakeRegistrar struct {
	mu   sync.Mutex
	tags []SyncTag
}

func (r *fakeRegistrar) Register(tag SyncTag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
	return nil
}

func (r *fakeRegistrar) registered() []SyncTag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SyncTag(nil), r.tags...)
}

type workerFixture struct {
	worker    *Worker
	fs        afero.Fs
	fetcher   *fakeFetcher
	pages     *fakePages
	notifier  *fakeNotifier
	registrar *fakeRegistrar
}

// newWorkerFixture builds a worker over an in-memory filesystem and starts
// its actor loop for the duration of the test.
func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	fetcher := newFakeFetcher()
	pages := &fakePages{}
	notifier := &fakeNotifier{}
	registrar := &fakeRegistrar{}

	w, err := New(nopLogger{}, testConfigProvider(), fs, fetcher, notifier, pages, registrar)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	return &workerFixture{
		worker:    w,
		fs:        fs,
		fetcher:   fetcher,
		pages:     pages,
		notifier:  notifier,
		registrar: registrar,
	}
}

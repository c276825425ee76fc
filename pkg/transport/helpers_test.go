// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

const apiPrefix = "/rest/" + DefaultAPIVersion

// fakeAOSCX emulates the REST API of an AOS-CX switch
type fakeAOSCX struct {
	mu sync.Mutex

	calls        []string
	configs      map[string]string
	dryRunErrors []string
	pendingPolls int
	autoTimeout  string
	autoRestore  string
	armed        bool
	noDryRun     bool
}

func newFakeAOSCX(running string) *fakeAOSCX {
	return &fakeAOSCX{configs: map[string]string{
		"running-config": running,
		"startup-config": running,
	}}
}

func (f *fakeAOSCX) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fakeAOSCX) config(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs[name]
}

func (f *fakeAOSCX) auto() (armed bool, timeout string, restore string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed, f.autoTimeout, f.autoRestore
}

func (f *fakeAOSCX) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := strings.TrimPrefix(r.URL.Path, apiPrefix)
	f.calls = append(f.calls, r.Method+" "+p)
	body, _ := io.ReadAll(r.Body)

	if p == "/login" {
		form, _ := url.ParseQuery(string(body))
		if form.Get("username") != "admin" || form.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "id", Value: "session", Path: "/"})
		return
	}
	if c, err := r.Cookie("id"); err != nil || c.Value != "session" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case p == "/logout":
	case p == "/system":
		_ = json.NewEncoder(w).Encode(SystemInfo{Hostname: "sw-spine-001", PlatformName: "8325", SoftwareVersion: "GL.10.09.0010"})
	case p == "/configs/dryrun" && f.noDryRun:
		w.WriteHeader(http.StatusNotFound)
	case p == "/configs/dryrun" && r.Method == http.MethodPost:
		w.WriteHeader(http.StatusAccepted)
	case p == "/configs/dryrun" && r.Method == http.MethodGet:
		status := dryRunStatus{State: DryRunSuccess}
		if f.pendingPolls > 0 {
			f.pendingPolls--
			status.State = DryRunPending
		} else if len(f.dryRunErrors) > 0 {
			status.State = DryRunFailed
			status.Errors = f.dryRunErrors
		}
		_ = json.NewEncoder(w).Encode(status)
	case p == "/configs/dryrun" && r.Method == http.MethodDelete:
	case p == "/configs/checkpoint/auto":
		f.armed = true
		f.autoTimeout = r.URL.Query().Get("timeout")
		f.autoRestore = r.URL.Query().Get("restore")
	case p == "/configs/checkpoint/auto/confirm":
		f.armed = false
	case p == "/configs/checkpoint/auto/acknowledge":
	case p == "/configs/running-config":
		_, _ = w.Write([]byte(f.configs["running-config"]))
	case strings.HasPrefix(p, "/fullconfigs/") && r.Method == http.MethodPut:
		to := path.Base(p)
		if from := r.URL.Query().Get("from"); from != "" {
			src, ok := f.configs[path.Base(from)]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			f.configs[to] = src
			return
		}
		f.configs[to] = string(body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func startFakeAOSCX(t *testing.T, f *fakeAOSCX) (*httptest.Server, *RESTSession) {
	ts := httptest.NewTLSServer(f)
	t.Cleanup(ts.Close)
	s, err := NewRESTSession(ts.URL+apiPrefix, Credentials{Username: "admin", Password: "secret"}, WithInsecureTLS(true), WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	return ts, s
}

// fakeSession is a scripted CommandSession
type fakeSession struct {
	sent    []string
	replies map[string]string
	closed  bool
	err     error
}

func (f *fakeSession) Send(ctx context.Context, cmd string) (string, error) {
	f.sent = append(f.sent, cmd)
	return f.replies[cmd], f.err
}

func (f *fakeSession) SendAll(ctx context.Context, cmds []string) ([]string, error) {
	var out []string
	for _, cmd := range cmds {
		reply, err := f.Send(ctx, cmd)
		if err != nil {
			return out, err
		}
		out = append(out, reply)
	}
	return out, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// fakeReachability answers probes from a table of unreachable addresses
type fakeReachability struct {
	mu     sync.Mutex
	down   map[string]bool
	probed []string
}

func (f *fakeReachability) Probe(ctx context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, address)
	if f.down[address] {
		return errors.NewUnavailable("%s unreachable: connection refused", address)
	}
	return nil
}

func (f *fakeReachability) WaitReachable(ctx context.Context, address string) error {
	return f.Probe(ctx, address)
}

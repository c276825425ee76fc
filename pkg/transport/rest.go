// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// DefaultAPIVersion is the REST API revision requested from AOS-CX switches.
const DefaultAPIVersion = "v10.09"

// SystemInfo identifies a switch.
type SystemInfo struct {
	Hostname        string `json:"hostname"`
	PlatformName    string `json:"platform_name"`
	SoftwareVersion string `json:"software_version"`
}

// RESTOption configures a RESTSession
type RESTOption func(s *RESTSession)

// WithHTTPTimeout sets the per-request timeout
func WithHTTPTimeout(timeout time.Duration) RESTOption {
	return func(s *RESTSession) {
		s.client.Timeout = timeout
	}
}

// WithInsecureTLS disables certificate verification; switches usually present self-signed
// certificates.
func WithInsecureTLS(insecure bool) RESTOption {
	return func(s *RESTSession) {
		s.insecure = insecure
	}
}

// WithPollInterval sets the delay between dry-run result polls
func WithPollInterval(interval time.Duration) RESTOption {
	return func(s *RESTSession) {
		s.pollInterval = interval
	}
}

// RESTSession is a cookie authenticated HTTPS session to an AOS-CX style REST API.
type RESTSession struct {
	base         string
	creds        Credentials
	client       *http.Client
	insecure     bool
	pollInterval time.Duration
	loggedIn     bool
}

// NewRESTSession creates a session against base, e.g. https://10.252.0.2/rest/v10.09.
func NewRESTSession(base string, creds Credentials, opts ...RESTOption) (*RESTSession, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	s := &RESTSession{
		base:         strings.TrimSuffix(base, "/"),
		creds:        creds,
		client:       &http.Client{Timeout: 10 * time.Second, Jar: jar},
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client.Transport = &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: s.insecure}, //nolint:gosec
	}
	return s, nil
}

// RESTBase returns the REST API root of a switch.
func RESTBase(address string) string {
	return fmt.Sprintf("https://%s/rest/%s", address, DefaultAPIVersion)
}

func (s *RESTSession) do(ctx context.Context, method string, path string, contentType string, body []byte) ([]byte, error) {
	endpoint := s.base + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Add("Content-Type", contentType)
	}
	req.Header.Add("Accept", "application/json, text/plain")

	log.Debugf("%s %s", method, endpoint)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewUnavailable("%s %s: %v", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUnavailable("%s %s: reading response: %v", method, endpoint, err)
	}
	if (resp.StatusCode < 200) || (resp.StatusCode >= 300) {
		return nil, &PushError{Operation: method, Endpoint: endpoint, StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// Login authenticates and stores the session cookie.
func (s *RESTSession) Login(ctx context.Context) error {
	form := url.Values{"username": {s.creds.Username}, "password": {s.creds.Password}}
	if _, err := s.do(ctx, http.MethodPost, "/login", "application/x-www-form-urlencoded", []byte(form.Encode())); err != nil {
		return err
	}
	s.loggedIn = true
	return nil
}

// Logout ends the session. It is a no-op when not logged in.
func (s *RESTSession) Logout(ctx context.Context) error {
	if !s.loggedIn {
		return nil
	}
	s.loggedIn = false
	_, err := s.do(ctx, http.MethodPost, "/logout", "", nil)
	return err
}

// LoggedIn reports whether the session holds a login.
func (s *RESTSession) LoggedIn() bool {
	return s.loggedIn
}

// System reads the identity of the switch.
func (s *RESTSession) System(ctx context.Context) (*SystemInfo, error) {
	data, err := s.do(ctx, http.MethodGet, "/system?attributes=hostname,platform_name,software_version", "", nil)
	if err != nil {
		return nil, err
	}
	info := &SystemInfo{}
	if err := json.Unmarshal(data, info); err != nil {
		return nil, errors.NewInvalid("decoding system information: %v", err)
	}
	return info, nil
}

// DryRunStart submits a candidate configuration for validation.
func (s *RESTSession) DryRunStart(ctx context.Context, candidate string) error {
	_, err := s.do(ctx, http.MethodPost, "/configs/dryrun", "text/plain", []byte(candidate))
	return err
}

type dryRunStatus struct {
	State  string   `json:"state"`
	Errors []string `json:"errors"`
}

// DryRunResult polls the dry-run until its state is no longer pending.
func (s *RESTSession) DryRunResult(ctx context.Context) (*DryRunReport, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		data, err := s.do(ctx, http.MethodGet, "/configs/dryrun", "", nil)
		if err != nil {
			return nil, err
		}
		status := &dryRunStatus{}
		if err := json.Unmarshal(data, status); err != nil {
			return nil, errors.NewInvalid("decoding dry-run status: %v", err)
		}
		if status.State != DryRunPending {
			return &DryRunReport{State: status.State, Errors: status.Errors}, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.NewTimeout("dry-run still pending: %v", ctx.Err())
		case <-ticker.C:
		}
	}
}

// DryRunClear discards the dry-run result.
func (s *RESTSession) DryRunClear(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodDelete, "/configs/dryrun", "", nil)
	return err
}

// CheckpointCreate saves the running configuration as a named checkpoint.
func (s *RESTSession) CheckpointCreate(ctx context.Context, name string) error {
	return s.CopyConfig(ctx, string(TargetRunning), name)
}

// CheckpointAuto arms the automatic revert timer. When restore is set the switch reverts to
// that checkpoint, otherwise to its configuration at the time of arming.
func (s *RESTSession) CheckpointAuto(ctx context.Context, window time.Duration, restore string) error {
	q := url.Values{"timeout": {fmt.Sprintf("%d", int(window.Seconds()))}}
	if restore != "" {
		q.Set("restore", restore)
	}
	_, err := s.do(ctx, http.MethodPost, "/configs/checkpoint/auto?"+q.Encode(), "", nil)
	return err
}

// CheckpointConfirm cancels the armed revert timer.
func (s *RESTSession) CheckpointConfirm(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodPost, "/configs/checkpoint/auto/confirm", "", nil)
	return err
}

// CheckpointAcknowledge clears the notice the switch keeps after an automatic revert.
func (s *RESTSession) CheckpointAcknowledge(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodPost, "/configs/checkpoint/auto/acknowledge", "", nil)
	return err
}

// UploadConfig applies CLI configuration text to a target.
func (s *RESTSession) UploadConfig(ctx context.Context, candidate string, target Target) error {
	_, err := s.do(ctx, http.MethodPut, "/fullconfigs/"+string(target), "text/plain", []byte(candidate))
	return err
}

// CopyConfig copies one configuration or checkpoint over another.
func (s *RESTSession) CopyConfig(ctx context.Context, from string, to string) error {
	q := url.Values{"from": {fmt.Sprintf("/rest/%s/fullconfigs/%s", DefaultAPIVersion, from)}}
	_, err := s.do(ctx, http.MethodPut, "/fullconfigs/"+url.PathEscape(to)+"?"+q.Encode(), "", nil)
	return err
}

// RunningConfig reads the running configuration as CLI text.
func (s *RESTSession) RunningConfig(ctx context.Context) (string, error) {
	data, err := s.do(ctx, http.MethodGet, "/configs/running-config?format=cli", "", nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

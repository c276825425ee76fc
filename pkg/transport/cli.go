// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// SessionDialer opens a command session to a switch.
type SessionDialer func(ctx context.Context) (CommandSession, error)

// CLITransport implements SafeRolloutTransport by sending dialect commands over a
// CommandSession.
type CLITransport struct {
	hostname string
	dial     SessionDialer
	dialect  *Dialect

	session CommandSession
	staged  bool
	target  Target
}

// NewCLITransport creates a transport for hostname. dial is called by Open.
func NewCLITransport(hostname string, dialect *Dialect, dial SessionDialer) *CLITransport {
	return &CLITransport{hostname: hostname, dialect: dialect, dial: dial}
}

// CandidateLines splits configuration text into the commands to send.
func CandidateLines(candidate string) []string {
	var lines []string
	for _, l := range strings.Split(candidate, "\n") {
		l = strings.TrimRight(l, "\r \t")
		t := strings.TrimSpace(l)
		if t == "" || strings.HasPrefix(t, "!") {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// Open dials the session.
func (t *CLITransport) Open(ctx context.Context) error {
	s, err := t.dial(ctx)
	if err != nil {
		return err
	}
	t.session = s
	return nil
}

// rejected returns the vendor messages in outputs
func (t *CLITransport) rejected(cmds []string, outputs []string) []string {
	var msgs []string
	for i, out := range outputs {
		for _, marker := range t.dialect.ErrorMarkers {
			if strings.Contains(out, marker) {
				msgs = append(msgs, fmt.Sprintf("%s: %s", strings.TrimSpace(cmds[i]), strings.TrimSpace(out)))
				break
			}
		}
	}
	return msgs
}

func (t *CLITransport) run(ctx context.Context, cmds ...string) error {
	if t.session == nil {
		return errors.NewUnavailable("no session to %s", t.hostname)
	}
	outputs, err := t.session.SendAll(ctx, cmds)
	if err != nil {
		return err
	}
	if msgs := t.rejected(cmds, outputs); len(msgs) > 0 {
		return errors.NewInvalid("%s rejected: %s", t.hostname, strings.Join(msgs, "; "))
	}
	return nil
}

func (t *CLITransport) unsupported(what string) error {
	return errors.NewNotSupported("%s dialect of %s has no %s", t.dialect.Name, t.hostname, what)
}

// DryRun validates candidate in the dialect's dry-run mode.
func (t *CLITransport) DryRun(ctx context.Context, candidate string) (*DryRunReport, error) {
	if t.dialect.DryRun == "" {
		return nil, t.unsupported("dry-run")
	}
	if t.session == nil {
		return nil, errors.NewUnavailable("no session to %s", t.hostname)
	}
	cmds := append([]string{t.dialect.DryRun}, CandidateLines(candidate)...)
	cmds = append(cmds, t.dialect.ExitConfig)
	outputs, err := t.session.SendAll(ctx, cmds)
	if err != nil {
		return nil, err
	}
	report := &DryRunReport{State: DryRunSuccess, Errors: t.rejected(cmds, outputs)}
	if len(report.Errors) > 0 {
		report.State = DryRunFailed
	}
	return report, nil
}

// Checkpoint saves the running configuration under name.
func (t *CLITransport) Checkpoint(ctx context.Context, name string) error {
	if t.dialect.Checkpoint == "" {
		return t.unsupported("checkpoints")
	}
	return t.run(ctx, fmt.Sprintf(t.dialect.Checkpoint, name))
}

// Restore replaces the running configuration with checkpoint name.
func (t *CLITransport) Restore(ctx context.Context, name string) error {
	if t.dialect.Restore == "" {
		return t.unsupported("checkpoint restore")
	}
	return t.run(ctx, fmt.Sprintf(t.dialect.Restore, name))
}

// Upload stages candidate in a transaction for TargetStartup, or applies it directly for
// TargetRunning. Dialects without transactions cannot stage.
func (t *CLITransport) Upload(ctx context.Context, candidate string, target Target) error {
	lines := CandidateLines(candidate)
	d := t.dialect

	switch target {
	case TargetStartup:
		if !d.Transactional() {
			return t.unsupported("transactions to stage configuration")
		}
		cmds := append([]string{d.ConfigMode, d.BeginTransaction}, lines...)
		t.staged = true
		if err := t.run(ctx, cmds...); err != nil {
			t.discard(ctx)
			return err
		}
	case TargetRunning:
		cmds := []string{d.ConfigMode}
		if d.Transactional() {
			cmds = append(cmds, d.BeginTransaction)
		}
		cmds = append(cmds, lines...)
		if d.Transactional() {
			cmds = append(cmds, d.Commit)
		}
		cmds = append(cmds, d.ExitConfig)
		if err := t.run(ctx, cmds...); err != nil {
			return err
		}
	default:
		return errors.NewInvalid("unknown target %s", target)
	}
	t.target = target
	return nil
}

func (t *CLITransport) discard(ctx context.Context) {
	if !t.staged {
		return
	}
	t.staged = false
	cmds := []string{t.dialect.ExitConfig}
	if t.dialect.Abort != "" {
		cmds = []string{t.dialect.Abort, t.dialect.ExitConfig}
	}
	if _, err := t.session.SendAll(ctx, cmds); err != nil {
		log.Warnf("Discarding staged configuration on %s: %v", t.hostname, err)
	}
}

// ArmRevert commits a staged transaction under the revert timer, or arms the timer after a
// direct upload.
func (t *CLITransport) ArmRevert(ctx context.Context, window time.Duration) error {
	if t.dialect.ArmRevert == "" {
		return t.unsupported("revert timer")
	}
	minutes := int(math.Ceil(window.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	arm := fmt.Sprintf(t.dialect.ArmRevert, minutes)
	if t.staged {
		if err := t.run(ctx, arm, t.dialect.ExitConfig); err != nil {
			t.discard(ctx)
			return err
		}
		t.staged = false
		return nil
	}
	if t.target == "" {
		return errors.NewInvalid("nothing uploaded to %s", t.hostname)
	}
	return t.run(ctx, arm)
}

// Confirm cancels the revert timer.
func (t *CLITransport) Confirm(ctx context.Context) error {
	if t.dialect.Confirm == "" {
		return t.unsupported("revert confirmation")
	}
	return t.run(ctx, t.dialect.Confirm)
}

// Persist writes running to startup.
func (t *CLITransport) Persist(ctx context.Context) error {
	return t.run(ctx, t.dialect.Persist)
}

// RunningConfig reads the running configuration.
func (t *CLITransport) RunningConfig(ctx context.Context) (string, error) {
	if t.session == nil {
		return "", errors.NewUnavailable("no session to %s", t.hostname)
	}
	return t.session.Send(ctx, t.dialect.ShowRunning)
}

// Close discards anything still staged and closes the session.
func (t *CLITransport) Close() error {
	if t.session == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t.discard(ctx)
	err := t.session.Close()
	t.session = nil
	return err
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// ArubaTransport implements SafeRolloutTransport over the AOS-CX REST API.
type ArubaTransport struct {
	hostname string
	session  *RESTSession

	uploaded   Target
	checkpoint string
}

// NewArubaTransport creates a transport for hostname over session.
func NewArubaTransport(hostname string, session *RESTSession) *ArubaTransport {
	return &ArubaTransport{hostname: hostname, session: session}
}

// Open logs in.
func (t *ArubaTransport) Open(ctx context.Context) error {
	if err := t.session.Login(ctx); err != nil {
		return err
	}
	log.Debugf("Logged in to %s", t.hostname)
	return nil
}

// DryRun validates candidate and always clears the dry-run afterwards.
func (t *ArubaTransport) DryRun(ctx context.Context, candidate string) (*DryRunReport, error) {
	if err := t.session.DryRunStart(ctx, candidate); err != nil {
		if pe, ok := err.(*PushError); ok && pe.StatusCode == 404 {
			return nil, errors.NewNotSupported("%s has no dry-run facility", t.hostname)
		}
		return nil, err
	}
	defer func() {
		if err := t.session.DryRunClear(ctx); err != nil {
			log.Warnf("Clearing dry-run on %s: %v", t.hostname, err)
		}
	}()
	return t.session.DryRunResult(ctx)
}

// Checkpoint saves the running configuration.
func (t *ArubaTransport) Checkpoint(ctx context.Context, name string) error {
	if err := t.session.CheckpointCreate(ctx, name); err != nil {
		return err
	}
	t.checkpoint = name
	return nil
}

// Restore copies a checkpoint over the running configuration.
func (t *ArubaTransport) Restore(ctx context.Context, name string) error {
	return t.session.CopyConfig(ctx, name, string(TargetRunning))
}

// Upload applies candidate to target. The switch replaces a configuration as a whole, so
// candidate is merged into the current running configuration first.
func (t *ArubaTransport) Upload(ctx context.Context, candidate string, target Target) error {
	running, err := t.session.RunningConfig(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(running) == "" {
		return errors.NewUnavailable("%s returned an empty running configuration", t.hostname)
	}
	if err := t.session.UploadConfig(ctx, MergeConfig(running, candidate), target); err != nil {
		return err
	}
	t.uploaded = target
	return nil
}

// ArmRevert arms the auto checkpoint. A configuration staged in startup is activated after
// arming; one already written to running reverts to the checkpoint taken before it.
func (t *ArubaTransport) ArmRevert(ctx context.Context, window time.Duration) error {
	switch t.uploaded {
	case TargetStartup:
		if err := t.session.CheckpointAuto(ctx, window, ""); err != nil {
			return err
		}
		return t.session.CopyConfig(ctx, string(TargetStartup), string(TargetRunning))
	case TargetRunning:
		return t.session.CheckpointAuto(ctx, window, t.checkpoint)
	}
	return errors.NewInvalid("nothing uploaded to %s", t.hostname)
}

// Confirm cancels the revert timer.
func (t *ArubaTransport) Confirm(ctx context.Context) error {
	return t.session.CheckpointConfirm(ctx)
}

// Acknowledge clears the notice of an automatic revert.
func (t *ArubaTransport) Acknowledge(ctx context.Context) error {
	return t.session.CheckpointAcknowledge(ctx)
}

// Persist writes running to startup.
func (t *ArubaTransport) Persist(ctx context.Context) error {
	return t.session.CopyConfig(ctx, string(TargetRunning), string(TargetStartup))
}

// Close logs out.
func (t *ArubaTransport) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return t.session.Logout(ctx)
}

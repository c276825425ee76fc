// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Package transport implements management sessions to switches and the vendor specific
// safe-rollout primitives built on them.
package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/logging"
)

var log = logging.GetLogger("transport")

// Target is a configuration store on a switch.
type Target string

// Configuration targets
const (
	TargetStartup Target = "startup-config"
	TargetRunning Target = "running-config"
)

// DryRunReport is the outcome of a vendor side validation of a candidate configuration.
type DryRunReport struct {
	State  string
	Errors []string
}

// Dry run states
const (
	DryRunPending = "pending"
	DryRunSuccess = "success"
	DryRunFailed  = "failed"
)

// Failed reports whether the candidate was rejected.
func (r *DryRunReport) Failed() bool {
	return r != nil && (r.State == DryRunFailed || len(r.Errors) > 0)
}

func (r *DryRunReport) String() string {
	if r == nil {
		return "<none>"
	}
	if len(r.Errors) == 0 {
		return r.State
	}
	return fmt.Sprintf("%s: %s", r.State, strings.Join(r.Errors, "; "))
}

// SafeRolloutTransport exposes the primitives of the safe-rollout protocol for one switch.
// Vendor differences stay behind this interface.
type SafeRolloutTransport interface {
	// Open establishes an authenticated session
	Open(ctx context.Context) error
	// DryRun validates a candidate without applying it. Returns a NotSupported error when the
	// switch has no dry-run facility.
	DryRun(ctx context.Context, candidate string) (*DryRunReport, error)
	// Checkpoint saves the running configuration under a name
	Checkpoint(ctx context.Context, name string) error
	// Restore replaces the running configuration with a named checkpoint
	Restore(ctx context.Context, name string) error
	// Upload writes a candidate configuration to a target
	Upload(ctx context.Context, candidate string, target Target) error
	// ArmRevert makes the uploaded configuration active under a revert timer
	ArmRevert(ctx context.Context, window time.Duration) error
	// Confirm cancels a pending revert timer
	Confirm(ctx context.Context) error
	// Persist copies the running configuration to the startup configuration
	Persist(ctx context.Context) error
	// Close logs out and releases the session
	Close() error
}

// Acknowledger is implemented by transports that must be told an automatic revert was seen.
type Acknowledger interface {
	Acknowledge(ctx context.Context) error
}

// PushError is returned for requests a switch answered with a non-2xx status. It makes it
// easier to tell a rejected request from a connectivity failure.
type PushError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Operation  string
	Body       string
}

func (e *PushError) Error() string {
	msg := fmt.Sprintf("Push Error op=%s endpoint=%s code=%d status=%s", e.Operation, e.Endpoint, e.StatusCode, e.Status)
	if e.Body != "" {
		msg += " body=" + e.Body
	}
	return msg
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// CheckpointState is the progress of one rollout attempt against one switch.
type CheckpointState int

// Checkpoint states
const (
	StateNone CheckpointState = iota
	StateCreated
	StateUploaded
	StatePendingConfirmation
	StateConfirmed
	StateRolledBack
)

var stateNames = map[CheckpointState]string{
	StateNone:                "None",
	StateCreated:             "Created",
	StateUploaded:            "Uploaded",
	StatePendingConfirmation: "PendingConfirmation",
	StateConfirmed:           "Confirmed",
	StateRolledBack:          "RolledBack",
}

func (s CheckpointState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// legal forward transitions; a reset to StateNone is always allowed
var transitions = map[CheckpointState][]CheckpointState{
	StateNone:                {StateCreated},
	StateCreated:             {StateUploaded},
	StateUploaded:            {StatePendingConfirmation},
	StatePendingConfirmation: {StateConfirmed, StateRolledBack},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to CheckpointState) bool {
	if to == StateNone {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// attempt tracks the state of a single rollout and every state it passed through.
type attempt struct {
	hostname string
	id       string
	state    CheckpointState
	trace    []CheckpointState
}

func newAttempt(hostname, id string) *attempt {
	return &attempt{hostname: hostname, id: id, trace: []CheckpointState{StateNone}}
}

func (a *attempt) moveTo(to CheckpointState) error {
	if !CanTransition(a.state, to) {
		return errors.NewInvalid("%s: illegal checkpoint transition %s -> %s", a.hostname, a.state, to)
	}
	log.Infof("%s rollout %s: %s -> %s", a.hostname, a.id, a.state, to)
	a.state = to
	a.trace = append(a.trace, to)
	return nil
}

// reset concludes the attempt
func (a *attempt) reset() {
	if a.state == StateNone {
		return
	}
	_ = a.moveTo(StateNone)
}

// reached returns the last state before the attempt was reset.
func (a *attempt) reached() CheckpointState {
	for i := len(a.trace) - 1; i >= 0; i-- {
		if a.trace[i] != StateNone {
			return a.trace[i]
		}
	}
	return StateNone
}

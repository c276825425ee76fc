// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const candidate = `router bgp 65533
 neighbor 192.168.4.5
  remote-as 65531
!
`

func openCLI(t *testing.T, vendor string, session *fakeSession) *CLITransport {
	tr := NewCLITransport("sw-leaf-001", DefaultDialects()[vendor], func(ctx context.Context) (CommandSession, error) {
		return session, nil
	})
	require.NoError(t, tr.Open(context.Background()))
	return tr
}

func TestCandidateLines(t *testing.T) {
	assert.Equal(t, []string{"router bgp 65533", " neighbor 192.168.4.5", "  remote-as 65531"}, CandidateLines(candidate))
}

func TestCLIStagedRollout(t *testing.T) {
	session := &fakeSession{}
	tr := openCLI(t, "dell", session)
	ctx := context.Background()

	_, err := tr.DryRun(ctx, candidate)
	assert.True(t, errors.IsNotSupported(err))

	require.NoError(t, tr.Checkpoint(ctx, "pre-1"))
	require.NoError(t, tr.Upload(ctx, candidate, TargetStartup))
	require.NoError(t, tr.ArmRevert(ctx, 90*time.Second))
	require.NoError(t, tr.Close())
	assert.True(t, session.closed)

	assert.Equal(t, []string{
		"copy running-configuration config://pre-1",
		"configure terminal",
		"start transaction",
		"router bgp 65533",
		" neighbor 192.168.4.5",
		"  remote-as 65531",
		"commit confirmed 2",
		"end",
	}, session.sent)

	confirm := &fakeSession{}
	tr = openCLI(t, "dell", confirm)
	require.NoError(t, tr.Confirm(ctx))
	require.NoError(t, tr.Persist(ctx))
	require.NoError(t, tr.Close())
	assert.Equal(t, []string{"commit confirm", "write memory"}, confirm.sent)
}

func TestCLIRejectedUploadIsDiscarded(t *testing.T) {
	session := &fakeSession{replies: map[string]string{"  remote-as 65531": "% Error: invalid AS"}}
	tr := openCLI(t, "dell", session)

	err := tr.Upload(context.Background(), candidate, TargetStartup)
	require.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "remote-as 65531: % Error: invalid AS")
	assert.Equal(t, []string{"discard", "end"}, session.sent[len(session.sent)-2:])

	// nothing left to discard on close
	n := len(session.sent)
	require.NoError(t, tr.Close())
	assert.Len(t, session.sent, n)
}

func TestCLIUnstagedDialectNeedsRunning(t *testing.T) {
	session := &fakeSession{}
	tr := openCLI(t, "aruba", session)
	ctx := context.Background()

	err := tr.Upload(ctx, candidate, TargetStartup)
	assert.True(t, errors.IsNotSupported(err))
	assert.Empty(t, session.sent)

	require.NoError(t, tr.Upload(ctx, candidate, TargetRunning))
	require.NoError(t, tr.ArmRevert(ctx, time.Minute))
	assert.Equal(t, []string{
		"configure terminal",
		"router bgp 65533",
		" neighbor 192.168.4.5",
		"  remote-as 65531",
		"end",
		"checkpoint auto 1",
	}, session.sent)
}

func TestCLIDryRunDialect(t *testing.T) {
	dialect := *DefaultDialects()["dell"]
	dialect.DryRun = "configure dry-run"
	session := &fakeSession{replies: map[string]string{"  remote-as 65531": "% Error: bad"}}
	tr := NewCLITransport("sw-leaf-001", &dialect, func(ctx context.Context) (CommandSession, error) { return session, nil })
	require.NoError(t, tr.Open(context.Background()))

	report, err := tr.DryRun(context.Background(), candidate)
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Len(t, report.Errors, 1)
	assert.Equal(t, "configure dry-run", session.sent[0])
	assert.Equal(t, "end", session.sent[len(session.sent)-1])
}

func TestCLIRunningConfig(t *testing.T) {
	session := &fakeSession{replies: map[string]string{"show running-configuration": "hostname sw-leaf-001\n"}}
	tr := openCLI(t, "dell", session)
	out, err := tr.RunningConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hostname sw-leaf-001\n", out)

	closed := NewCLITransport("sw-leaf-001", DefaultDialects()["dell"], nil)
	_, err = closed.RunningConfig(context.Background())
	assert.True(t, errors.IsUnavailable(err))
	assert.NoError(t, closed.Close())
}

func TestMergeDialects(t *testing.T) {
	custom := &Dialect{Name: "dell", ShowRunning: "show run", ConfigMode: "conf t", ExitConfig: "end", Persist: "wr"}
	merged := MergeDialects(map[string]*Dialect{"dell": custom})
	assert.Same(t, custom, merged["dell"])
	assert.False(t, merged["dell"].Transactional())
	assert.True(t, DefaultDialects()["dell"].Transactional())
	assert.NotNil(t, merged["aruba"])

	_, err := (&Dialect{Name: "x", Prompt: "("}).PromptPattern()
	assert.True(t, errors.IsInvalid(err))
	re, err := (&Dialect{Name: "x"}).PromptPattern()
	require.NoError(t, err)
	assert.Same(t, DefaultPrompt, re)
}

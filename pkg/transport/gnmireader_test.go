// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"testing"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	gpb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	request *gpb.GetRequest
	value   *gpb.TypedValue
	err     error
}

func (tc *testClient) Get(ctx context.Context, r *gpb.GetRequest) (*gpb.GetResponse, error) {
	tc.request = r
	if tc.err != nil {
		return nil, tc.err
	}
	resp := &gpb.GetResponse{}
	if tc.value != nil {
		resp.Notification = []*gpb.Notification{{
			Update: []*gpb.Update{{Path: r.Path[0], Val: tc.value}},
		}}
	}
	return resp, nil
}

func (*testClient) Close() error { return nil }

// TestGNMIRunningConfig tests that the reader asks for the CLI running configuration
func TestGNMIRunningConfig(t *testing.T) {
	tc := &testClient{value: asciiValue("hostname sw-leaf-bmc-001\n")}
	reader := NewGNMIReaderWithClient("10.252.0.6:9339", "sw-leaf-bmc-001", tc)

	out, err := reader.RunningConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hostname sw-leaf-bmc-001\n", out)
	assert.Contains(t, tc.request.String(), "origin:\"cli\"")
	assert.Contains(t, tc.request.String(), "name:\"running-config\"")
	assert.Equal(t, gpb.Encoding_ASCII, tc.request.Encoding)
	assert.NoError(t, reader.Close())

	tc.value = &gpb.TypedValue{Value: &gpb.TypedValue_StringVal{StringVal: "hostname x\n"}}
	out, err = reader.RunningConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hostname x\n", out)
}

// TestGNMIRunningConfigError tests that a failed Get surfaces as a PushError
func TestGNMIRunningConfigError(t *testing.T) {
	tc := &testClient{err: errors.NewUnavailable("gnmi get operation failed")}
	reader := NewGNMIReaderWithClient("10.252.0.6:9339", "sw-leaf-bmc-001", tc)
	_, err := reader.RunningConfig(context.Background())
	assert.Error(t, err)
	pushError := err.(*PushError)
	assert.NotNil(t, pushError)
	assert.Greater(t, pushError.StatusCode, 0)

	empty := NewGNMIReaderWithClient("10.252.0.6:9339", "sw-leaf-bmc-001", &testClient{})
	_, err = empty.RunningConfig(context.Background())
	assert.True(t, errors.IsNotFound(err))
}

func TestGNMIClientFactory(t *testing.T) {
	saved := GNMIClientFactory
	defer func() { GNMIClientFactory = saved }()

	tc := &testClient{value: &gpb.TypedValue{Value: &gpb.TypedValue_BytesVal{BytesVal: []byte("hostname y\n")}}}
	GNMIClientFactory = func(dest string, target string, opts GNMIOptions) GNMIClient {
		assert.Equal(t, "10.252.0.6:9339", dest)
		return tc
	}
	out, err := NewGNMIReader("10.252.0.6:9339", "sw", GNMIOptions{}).RunningConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hostname y\n", out)
}

func asciiValue(s string) *gpb.TypedValue {
	return &gpb.TypedValue{Value: &gpb.TypedValue_AsciiVal{AsciiVal: s}}
}

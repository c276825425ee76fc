// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	gpb "github.com/openconfig/gnmi/proto/gnmi"
)

// GNMIClientFactory creates the underlying gNMI clients. Overridden by tests.
var GNMIClientFactory = newGNMIClient

// GNMIReader reads the running configuration of a switch as CLI text over gNMI.
type GNMIReader struct {
	endpoint string
	target   string
	client   GNMIClient
}

// NewGNMIReader creates a reader for endpoint (host:port).
func NewGNMIReader(endpoint string, target string, opts GNMIOptions) *GNMIReader {
	return NewGNMIReaderWithClient(endpoint, target, GNMIClientFactory(endpoint, target, opts))
}

// NewGNMIReaderWithClient creates a reader over an existing client.
func NewGNMIReaderWithClient(endpoint string, target string, client GNMIClient) *GNMIReader {
	return &GNMIReader{endpoint: endpoint, target: target, client: client}
}

// RunningConfig issues Get{origin:"cli" elem:"running-config"} with ASCII encoding.
func (r *GNMIReader) RunningConfig(ctx context.Context) (string, error) {
	req := &gpb.GetRequest{
		Path: []*gpb.Path{{
			Origin: "cli",
			Elem:   []*gpb.PathElem{{Name: "running-config"}},
			Target: r.target,
		}},
		Encoding: gpb.Encoding_ASCII,
	}
	resp, err := r.client.Get(ctx, req)
	if err != nil {
		return "", &PushError{
			Endpoint:   r.endpoint,
			StatusCode: 500,
			Status:     err.Error(),
			Operation:  "GET",
		}
	}
	for _, n := range resp.GetNotification() {
		for _, u := range n.GetUpdate() {
			switch v := u.GetVal().GetValue().(type) {
			case *gpb.TypedValue_AsciiVal:
				return v.AsciiVal, nil
			case *gpb.TypedValue_StringVal:
				return v.StringVal, nil
			case *gpb.TypedValue_BytesVal:
				return string(v.BytesVal), nil
			}
		}
	}
	return "", errors.NewNotFound("%s returned no running configuration", r.endpoint)
}

// Close releases the client.
func (r *GNMIReader) Close() error {
	return r.client.Close()
}

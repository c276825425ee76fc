// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"io"
	"math"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/certs"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/grpc/retry"
	baseClient "github.com/openconfig/gnmi/client"
	gclient "github.com/openconfig/gnmi/client/gnmi"
	gpb "github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
)

// GNMIClient is the part of a gNMI client the reader needs.
type GNMIClient interface {
	io.Closer
	Get(ctx context.Context, r *gpb.GetRequest) (*gpb.GetResponse, error)
}

// GNMIOptions select how a gNMI connection is secured.
type GNMIOptions struct {
	Secure   bool          `yaml:"secure,omitempty"`
	CAPath   string        `yaml:"caPath,omitempty"`
	KeyPath  string        `yaml:"keyPath,omitempty"`
	CertPath string        `yaml:"certPath,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// gnmiClient dials on every Get, so a reader never holds a connection between reads
type gnmiClient struct {
	dest   string
	target string
	opts   GNMIOptions
}

func getClientCredentials(opts GNMIOptions) (*tls.Config, error) {
	if !opts.Secure {
		return nil, nil
	}
	if opts.KeyPath != "" && opts.CertPath != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertPath, opts.KeyPath)
		if err != nil {
			return nil, err
		}
		return &tls.Config{Certificates: []tls.Certificate{cert}, InsecureSkipVerify: true}, nil //nolint:gosec
	}
	cert, err := tls.X509KeyPair([]byte(certs.DefaultClientCrt), []byte(certs.DefaultClientKey))
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: true, //nolint:gosec
	}, nil
}

func (c *gnmiClient) connect(ctx context.Context) (*gclient.Client, error) {
	creds, err := getClientCredentials(c.opts)
	if err != nil {
		return nil, err
	}
	timeout := c.opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dest := baseClient.Destination{
		Addrs:   []string{c.dest},
		Target:  c.target,
		TLS:     creds,
		Timeout: timeout,
	}

	opts := []grpc.DialOption{
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(math.MaxInt32)),
		grpc.WithUnaryInterceptor(retry.RetryingUnaryClientInterceptor(retry.WithRetryOn(codes.Unavailable))),
	}
	if creds != nil {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(creds)))
	} else {
		opts = append(opts, grpc.WithInsecure())
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := grpc.DialContext(dialCtx, c.dest, opts...)
	if err != nil {
		return nil, errors.NewUnavailable("dialing %s: %v", c.dest, err)
	}
	client, err := gclient.NewFromConn(ctx, conn, dest)
	if err != nil {
		_ = conn.Close()
		return nil, errors.NewUnavailable("gnmi client for %s: %v", c.dest, err)
	}
	return client, nil
}

// Get calls the gNMI Get RPC on a fresh connection.
func (c *gnmiClient) Get(ctx context.Context, req *gpb.GetRequest) (*gpb.GetResponse, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	resp, err := client.Get(ctx, req)
	return resp, errors.FromGRPC(err)
}

// Close is a no-op; connections are closed after every call.
func (c *gnmiClient) Close() error {
	return nil
}

func newGNMIClient(dest string, target string, opts GNMIOptions) GNMIClient {
	return &gnmiClient{dest: dest, target: target, opts: opts}
}

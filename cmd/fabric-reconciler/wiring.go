// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/onosproject/fabric-reconciler/pkg/config"
	"github.com/onosproject/fabric-reconciler/pkg/drift"
	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/render"
	"github.com/onosproject/fabric-reconciler/pkg/rollout"
	"github.com/onosproject/fabric-reconciler/pkg/store"
	"github.com/onosproject/fabric-reconciler/pkg/synchronizer"
	"github.com/onosproject/fabric-reconciler/pkg/transport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// fleet is everything a command needs to talk to the switches.
type fleet struct {
	cfg       *config.Config
	inv       *inventory.Inventory
	vars      *inventory.Variables
	connector *transport.Connector
	detector  *drift.Detector
	protocol  *rollout.Protocol
	cache     store.VendorCache
	metrics   *http.Server
}

// load reads the settings, the inventory and optionally the variable tables, and connects
// the reconciliation components.
func (o *globalOptions) load(withVariables bool) (*fleet, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	inv, err := inventory.Load(o.inventoryPath)
	if err != nil {
		return nil, err
	}
	if inv, err = inv.Filter(o.switches...); err != nil {
		return nil, err
	}

	f := &fleet{cfg: cfg, inv: inv}
	if withVariables {
		if f.vars, err = inventory.LoadVariables(o.variablesPath); err != nil {
			return nil, err
		}
	}

	prober := transport.NewProber(
		transport.WithProbeTimeout(cfg.Rollout.ProbeTimeout),
		transport.WithProbeRetries(cfg.Rollout.ProbeRetries, cfg.Rollout.ProbeDelay),
	)
	connectorOpts := []transport.ConnectorOption{
		transport.WithCredentials(cfg.Credentials),
		transport.WithReachability(prober),
		transport.WithSSH(cfg.SSH),
		transport.WithREST(cfg.HTTPTimeout, cfg.InsecureTLS),
		transport.WithGNMI(cfg.GNMI, cfg.GNMIPort),
		transport.WithDialects(transport.MergeDialects(cfg.Dialects)),
	}
	if cfg.CachePath != "" {
		cache, err := store.NewBoltVendorCache(cfg.CachePath, cfg.CacheMaxAge)
		if err != nil {
			log.Warnf("Vendor cache %s unavailable, detecting every switch: %v", cfg.CachePath, err)
		} else {
			f.cache = cache
			connectorOpts = append(connectorOpts, transport.WithVendorCache(cache))
		}
	}
	f.connector = transport.NewConnector(connectorOpts...)

	detectorOpts := []drift.DetectorOption{drift.WithVersion(cfg.Version)}
	if cfg.TemplateDir != "" {
		detectorOpts = append(detectorOpts, drift.WithRenderer(render.FromDirectory(cfg.TemplateDir)))
	}
	f.detector = drift.NewDetector(f.connector, detectorOpts...)

	f.protocol = rollout.NewProtocol(f.connector,
		rollout.WithRevertWindow(cfg.Rollout.RevertWindow),
		rollout.WithConfirmRetryDelay(cfg.Rollout.ConfirmRetryDelay),
		rollout.WithConfirmMargin(cfg.Rollout.ConfirmMargin),
		rollout.WithProber(prober),
	)

	if cfg.MetricsAddr != "" {
		f.serveMetrics(cfg.MetricsAddr)
	}
	return f, nil
}

func (f *fleet) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	f.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := f.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnf("Metrics endpoint %s stopped: %v", addr, err)
		}
	}()
	log.Infof("Serving metrics on %s/metrics", addr)
}

// synchronizer creates a synchronizer over the fleet's components.
func (f *fleet) synchronizer(opts ...synchronizer.SynchronizerOption) *synchronizer.Synchronizer {
	base := []synchronizer.SynchronizerOption{
		synchronizer.WithWorkers(f.cfg.Workers),
		synchronizer.WithDomains(f.cfg.ConfigDomains()...),
		synchronizer.WithAuditor(f.detector),
		synchronizer.WithRemediator(rollout.NewRemediator(f.detector, f.protocol)),
		synchronizer.WithValidator(f.protocol),
		synchronizer.WithConfigReader(f.connector),
		synchronizer.WithMetrics(f.cfg.MetricsAddr != ""),
	}
	return synchronizer.NewSynchronizer(append(base, opts...)...)
}

func (f *fleet) Close() {
	if f.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.metrics.Shutdown(ctx)
	}
	if f.cache != nil {
		if err := f.cache.Close(); err != nil {
			log.Warnf("Closing vendor cache: %v", err)
		}
	}
}

// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

package drift

import (
	"context"
	"strings"

	"github.com/onosproject/fabric-reconciler/pkg/inventory"
	"github.com/onosproject/fabric-reconciler/pkg/render"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
)

var log = logging.GetLogger("drift")

// DefaultVersion is the CSM release whose templates are rendered by default.
const DefaultVersion = "1.6"

// Status is the outcome of comparing one domain.
type Status string

// Domain statuses
const (
	StatusConverged     Status = "converged"
	StatusDrifted       Status = "drifted"
	StatusIndeterminate Status = "indeterminate"
)

// ConfigReader reads the live state of a switch.
type ConfigReader interface {
	// Vendor returns the vendor of the switch, detecting it if the inventory does not say.
	Vendor(ctx context.Context, sw *inventory.Switch) (string, error)
	// RunningConfig returns the running configuration as CLI text.
	RunningConfig(ctx context.Context, sw *inventory.Switch) (string, error)
}

// ConfigDomain is the comparison of one domain of one switch.
type ConfigDomain struct {
	Switch string
	Domain Domain
	Vendor string
	// Rendered is the desired configuration text
	Rendered string
	Desired  *Records
	Observed *Records
	Diff     Diff
	Status   Status
}

// Converged reports whether the domain has no drift.
func (c *ConfigDomain) Converged() bool {
	return c != nil && c.Status == StatusConverged
}

// Drifted reports whether the domain differs from its desired state.
func (c *ConfigDomain) Drifted() bool {
	return c != nil && c.Status == StatusDrifted
}

// DetectorOption configures a Detector
type DetectorOption func(d *Detector)

// WithVersion selects the template version
func WithVersion(version string) DetectorOption {
	return func(d *Detector) {
		d.version = version
	}
}

// WithRenderer sets the renderer used for desired configuration
func WithRenderer(r render.Renderer) DetectorOption {
	return func(d *Detector) {
		d.renderer = r
	}
}

// Detector compares rendered desired configuration with running configuration.
type Detector struct {
	reader   ConfigReader
	renderer render.Renderer
	version  string
}

// NewDetector creates a Detector reading switches through reader.
func NewDetector(reader ConfigReader, opts ...DetectorOption) *Detector {
	d := &Detector{
		reader:   reader,
		renderer: render.Default(),
		version:  DefaultVersion,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diff compares one domain of a switch. When the observed configuration cannot be read or
// parsed the result is indeterminate and an error is returned alongside it.
func (d *Detector) Diff(ctx context.Context, sw *inventory.Switch, domain Domain, vars map[string]interface{}) (*ConfigDomain, error) {
	results, err := d.DiffAll(ctx, sw, []Domain{domain}, vars)
	if len(results) == 0 {
		return &ConfigDomain{Switch: sw.Hostname, Domain: domain, Status: StatusIndeterminate}, err
	}
	return results[0], err
}

// DiffAll compares several domains against a single read of the running configuration. Every
// requested domain gets a result; the error reports the first domain that failed.
func (d *Detector) DiffAll(ctx context.Context, sw *inventory.Switch, domains []Domain, vars map[string]interface{}) ([]*ConfigDomain, error) {
	results := make([]*ConfigDomain, 0, len(domains))
	indeterminate := func(err error) ([]*ConfigDomain, error) {
		for _, domain := range domains {
			results = append(results, &ConfigDomain{Switch: sw.Hostname, Domain: domain, Status: StatusIndeterminate})
		}
		return results, err
	}

	vendor, err := d.reader.Vendor(ctx, sw)
	if err != nil {
		log.Warnf("Cannot determine vendor of %s: %v", sw.Hostname, err)
		return indeterminate(err)
	}
	running, err := d.reader.RunningConfig(ctx, sw)
	if err != nil {
		log.Warnf("Cannot read running configuration of %s: %v", sw.Hostname, err)
		return indeterminate(err)
	}
	if strings.TrimSpace(running) == "" {
		return indeterminate(errors.NewInvalid("%s returned an empty running configuration", sw.Hostname))
	}

	var first error
	for _, domain := range domains {
		cd, err := d.compare(sw, vendor, domain, running, vars)
		if err != nil {
			log.Warnf("Domain %s of %s is indeterminate: %v", domain, sw.Hostname, err)
			if first == nil {
				first = err
			}
		}
		results = append(results, cd)
	}
	return results, first
}

func (d *Detector) compare(sw *inventory.Switch, vendor string, domain Domain, running string, vars map[string]interface{}) (*ConfigDomain, error) {
	cd := &ConfigDomain{Switch: sw.Hostname, Domain: domain, Vendor: vendor, Status: StatusIndeterminate}

	rendered, err := d.renderer.Render(render.Key{Vendor: vendor, Domain: string(domain), Version: d.version}, vars)
	if err != nil {
		return cd, err
	}
	cd.Rendered = rendered

	desired, err := Parse(domain, rendered)
	if err != nil {
		return cd, errors.NewInvalid("desired %s configuration of %s: %v", domain, sw.Hostname, err)
	}
	observed, err := Parse(domain, running)
	if err != nil {
		return cd, errors.NewInvalid("running %s configuration of %s: %v", domain, sw.Hostname, err)
	}
	cd.Desired, cd.Observed = desired, observed

	cd.Diff = Compare(domain, desired, observed)
	if cd.Diff.Empty() {
		cd.Status = StatusConverged
	} else {
		cd.Status = StatusDrifted
		log.Infof("%s drifted in %s: %d records differ", sw.Hostname, domain, cd.Diff.Count())
	}
	return cd, nil
}

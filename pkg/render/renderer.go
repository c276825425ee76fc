// SPDX-FileCopyrightText: 2022-present Intel Corporation
// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0

// Package render turns variable tables into switch configuration text.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
)

var log = logging.GetLogger("render")

//go:embed templates
var embedded embed.FS

// Key selects a template.
type Key struct {
	Vendor  string
	Domain  string
	Version string
}

func (k Key) path() string {
	return path.Join(k.Version, k.Vendor, k.Domain+".tmpl")
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s@%s", k.Vendor, k.Domain, k.Version)
}

// Renderer renders configuration text. Implementations must have no side effects.
type Renderer interface {
	Render(key Key, vars map[string]interface{}) (string, error)
}

// TemplateRenderer renders text/template files laid out as <version>/<vendor>/<domain>.tmpl.
type TemplateRenderer struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[Key]*template.Template
}

// NewTemplateRenderer creates a renderer reading templates from fsys.
func NewTemplateRenderer(fsys fs.FS) *TemplateRenderer {
	return &TemplateRenderer{
		fsys:  fsys,
		cache: map[Key]*template.Template{},
	}
}

// Default returns a renderer over the built-in templates.
func Default() *TemplateRenderer {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return NewTemplateRenderer(sub)
}

// FromDirectory returns a renderer over a template directory, or the built-in templates when
// dir is empty.
func FromDirectory(dir string) *TemplateRenderer {
	if dir == "" {
		return Default()
	}
	return NewTemplateRenderer(os.DirFS(dir))
}

func (r *TemplateRenderer) lookup(key Key) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.cache[key]; ok {
		return tmpl, nil
	}

	data, err := fs.ReadFile(r.fsys, key.path())
	if err != nil {
		return nil, errors.NewNotFound("no template for %s: %v", key, err)
	}
	tmpl, err := template.New(key.String()).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(data))
	if err != nil {
		return nil, errors.NewInvalid("template %s: %v", key, err)
	}
	log.Debugf("Loaded template %s", key)
	r.cache[key] = tmpl
	return tmpl, nil
}

// Render executes the template for key against vars.
func (r *TemplateRenderer) Render(key Key, vars map[string]interface{}) (string, error) {
	tmpl, err := r.lookup(key)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", errors.NewInvalid("rendering %s: %v", key, err)
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}

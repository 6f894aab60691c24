// SPDX-FileCopyrightText: 2025 The Powerdeck Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Builder layers YAML documents over a base configuration. Later documents
// win; fields a document leaves out keep their previous value.
type Builder struct {
	yamls  []string
	files  []string
	Config *Config
}

// Use sets the base configuration
func (b *Builder) Use(c *Config) *Builder {
	b.Config = c
	return b
}

// Merge adds YAML strings to be merged into the configuration
func (b *Builder) Merge(yamls ...string) *Builder {
	b.yamls = append(b.yamls, yamls...)
	return b
}

// MergeFiles adds YAML files to be merged into the configuration. Files are
// merged after all strings passed to Merge, in the order given.
func (b *Builder) MergeFiles(paths ...string) *Builder {
	b.files = append(b.files, paths...)
	return b
}

// Build merges all layers into the base configuration, then sanitizes and
// validates the result
func (b *Builder) Build(skips ...SkipValidation) (*Config, error) {
	if b.Config == nil {
		b.Config = DefaultConfig()
	}

	layers := make([]string, 0, len(b.yamls)+len(b.files))
	layers = append(layers, b.yamls...)

	var errs error
	for _, path := range b.files {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to read config file %s: %w", path, err))
			continue
		}
		layers = append(layers, string(data))
	}

	for _, y := range layers {
		additional := &Config{}
		if err := yaml.Unmarshal([]byte(y), additional); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to parse YAML: %w, yaml: %s", err, y))
			continue
		}

		if err := mergo.Merge(b.Config, additional, mergo.WithOverride, mergo.WithTransformers(boolPtrTransformer{})); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to merge config: %w, yaml: %s", err, y))
			continue
		}
	}

	if errs != nil {
		return nil, errs
	}

	b.Config.sanitize()
	if err := b.Config.Validate(skips...); err != nil {
		return nil, err
	}
	return b.Config, nil
}

// boolPtrTransformer lets an explicit `false` in a layer override `true`
// below it; mergo would otherwise treat the pointer as already set.
type boolPtrTransformer struct{}

func (t boolPtrTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf((*bool)(nil)) {
		return nil
	}

	return func(dst, src reflect.Value) error {
		if src.IsNil() {
			return nil
		}
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

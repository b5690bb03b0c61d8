/*
NAME
  options.go

DESCRIPTION
  options.go implements Options, a small ordered key/value set the codec
  parameter mappers (codec/hevc, codec/av1) build up and that the encoder
  applies to a backend codec context via av_dict_set/av_opt_set, plus the
  free-form "key1=val1:key2=val2" advanced-options string parser.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

import "strings"

// Options is an ordered set of backend codec/private options, as built by
// a codec parameter mapper before Encoder.Open applies them.
type Options struct {
	keys []string
	vals map[string]string
}

// NewOptions returns an empty option set.
func NewOptions() *Options {
	return &Options{vals: make(map[string]string)}
}

// Set assigns key=val, overwriting any previous value for key while
// preserving its original position in iteration order.
func (o *Options) Set(key, val string) *Options {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = val
	return o
}

// Get returns the value set for key, and whether it was set at all.
func (o *Options) Get(key string) (string, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Each calls fn once per key/value pair, in the order the keys were first
// set.
func (o *Options) Each(fn func(key, val string)) {
	for _, k := range o.keys {
		fn(k, o.vals[k])
	}
}

// ParseAdvanced parses a colon-separated "key1=val1:key2=val2" advanced
// option string (x265-params/svtav1-params syntax) and merges the pairs
// into o, in left-to-right order, overwriting any previously set values
// with the same key. Malformed segments (no "=") are skipped rather than
// rejected outright, since a bad segment in a long advanced-options string
// shouldn't take the whole encode down.
func (o *Options) ParseAdvanced(s string) {
	if s == "" {
		return
	}
	for _, seg := range strings.Split(s, ":") {
		k, v, ok := strings.Cut(seg, "=")
		if !ok || k == "" {
			continue
		}
		o.Set(k, v)
	}
}

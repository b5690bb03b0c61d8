/*
NAME
  bindings.go

DESCRIPTION
  bindings.go loads the codec backend's shared libraries (libavformat,
  libavcodec, libavutil, libswscale-shaped ABI) at runtime via purego, with
  no cgo and no libav headers required to build this module. This mirrors
  the no-cgo FFmpeg binding approach taken by other purego-based wrappers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package backend is the narrow wrapper around the codec backend: demux,
// decode, encode, mux, and software-scale primitives. Nothing outside this
// package touches a backend pointer directly; everything above it works in
// terms of avutil.Frame and avutil's enumerations.
package backend

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

// library SONAMEs to try, per platform, in order.
var libNames = map[string][4][]string{
	"linux": {
		{"libavformat.so.60", "libavformat.so.59", "libavformat.so"},
		{"libavcodec.so.60", "libavcodec.so.59", "libavcodec.so"},
		{"libavutil.so.58", "libavutil.so.57", "libavutil.so"},
		{"libswscale.so.7", "libswscale.so.6", "libswscale.so"},
	},
	"darwin": {
		{"libavformat.60.dylib", "libavformat.dylib"},
		{"libavcodec.60.dylib", "libavcodec.dylib"},
		{"libavutil.58.dylib", "libavutil.dylib"},
		{"libswscale.7.dylib", "libswscale.dylib"},
	},
}

var (
	loadOnce sync.Once
	loadErr  error

	libavformat uintptr
	libavcodec  uintptr
	libavutil   uintptr
	libswscale  uintptr
)

// Load resolves and opens the backend shared libraries and registers the
// function pointers this package needs. It is safe to call multiple times;
// only the first call does work. Callers normally don't call Load
// directly — it runs lazily the first time a backend type is used.
func Load() error {
	loadOnce.Do(func() {
		names, ok := libNames[runtime.GOOS]
		if !ok {
			loadErr = fmt.Errorf("backend: unsupported platform %s", runtime.GOOS)
			return
		}
		var err error
		if libavformat, err = dlopenAny(names[0]); err != nil {
			loadErr = err
			return
		}
		if libavcodec, err = dlopenAny(names[1]); err != nil {
			loadErr = err
			return
		}
		if libavutil, err = dlopenAny(names[2]); err != nil {
			loadErr = err
			return
		}
		if libswscale, err = dlopenAny(names[3]); err != nil {
			loadErr = err
			return
		}
		registerAVUtil()
		registerAVFormat()
		registerAVCodec()
		registerSWScale()
	})
	return loadErr
}

func dlopenAny(names []string) (uintptr, error) {
	var lastErr error
	for _, n := range names {
		h, err := purego.Dlopen(n, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return h, nil
		}
		lastErr = err
	}
	return 0, fmt.Errorf("backend: could not load any of %v: %w", names, lastErr)
}

func registerLibFunc(fptr interface{}, lib uintptr, name string) {
	purego.RegisterLibFunc(fptr, lib, name)
}

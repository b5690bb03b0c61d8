/*
NAME
  avutil_reg.go

DESCRIPTION
  avutil_reg.go registers the libavutil entry points this package uses:
  frame allocation, error strings, and the AVDictionary option helpers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

var (
	avDictSet  func(*uintptr, string, string, int32) int32
	avDictFree func(*uintptr)
)

func registerAVUtil() {
	registerAVUtilFrame()
	registerErrString()
	registerLibFunc(&avDictSet, libavutil, "av_dict_set")
	registerLibFunc(&avDictFree, libavutil, "av_dict_free")
}

// newDict builds a backend AVDictionary handle from o, for passing to
// avformat_open_input / avcodec_open2's options parameter.
func newDict(o *Options) uintptr {
	var dict uintptr
	if o == nil {
		return 0
	}
	o.Each(func(k, v string) {
		avDictSet(&dict, k, v, 0)
	})
	return dict
}

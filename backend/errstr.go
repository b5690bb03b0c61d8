/*
NAME
  errstr.go

DESCRIPTION
  errstr.go turns a backend return code into a human-readable string via
  av_strerror, for use in perr.Error's Backend field.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

import "fmt"

var avStrerror func(int32, *byte, uintptr) int32

func registerErrString() {
	registerLibFunc(&avStrerror, libavutil, "av_strerror")
}

// errString renders a negative backend return code as a short description,
// falling back to the raw numeric code if the backend can't explain it.
func errString(code int32) string {
	buf := make([]byte, 256)
	if avStrerror(code, &buf[0], uintptr(len(buf))) != 0 {
		return fmt.Sprintf("backend error %d", code)
	}
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

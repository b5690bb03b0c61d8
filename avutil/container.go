/*
NAME
  container.go

DESCRIPTION
  container.go provides the closed ContainerFormat enumeration, carrying a
  canonical short name forwarded verbatim to the backend's muxer/demuxer
  format lookup.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package avutil

// ContainerFormat is the closed container/muxer format enumeration.
type ContainerFormat int

// The set of container formats pollux names explicitly. ContainerNone means
// "let the backend guess the container from the output URL's extension".
const (
	ContainerNone ContainerFormat = iota
	ContainerAVI
	ContainerMP4
	ContainerMPEGTS
	ContainerGIF
	ContainerImage2Pipe
)

var containerNames = map[ContainerFormat]string{
	ContainerAVI:        "avi",
	ContainerMP4:        "mp4",
	ContainerMPEGTS:     "mpegts",
	ContainerGIF:        "gif",
	ContainerImage2Pipe: "image2pipe",
}

// Name returns the canonical short name the backend expects for this
// container format. ContainerNone (and any unrecognised value) resolves
// to "", telling the backend to guess the container from the output
// URL's extension instead of naming one explicitly.
func (c ContainerFormat) Name() string {
	return containerNames[c]
}

func (c ContainerFormat) String() string { return c.Name() }

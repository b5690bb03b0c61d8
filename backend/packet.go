/*
NAME
  packet.go

DESCRIPTION
  packet.go wraps the backend's compressed-packet object (an AVPacket*),
  used internally by Demuxer.NextFrame and Muxer.WritePacket. It never
  escapes package backend: callers above this layer only ever see Frame.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.
*/

package backend

var (
	avPacketAlloc func() uintptr
	avPacketFree  func(*uintptr)
	avPacketUnref func(uintptr)
)

func registerPacket() {
	registerLibFunc(&avPacketAlloc, libavcodec, "av_packet_alloc")
	registerLibFunc(&avPacketFree, libavcodec, "av_packet_free")
	registerLibFunc(&avPacketUnref, libavcodec, "av_packet_unref")
}

// packet is a handle to a backend-owned AVPacket, reused across reads
// (Demuxer) or writes (Muxer) rather than reallocated each time.
type packet struct {
	native uintptr
}

func newPacket() *packet {
	return &packet{native: avPacketAlloc()}
}

func (p *packet) unref() {
	if p.native != 0 {
		avPacketUnref(p.native)
	}
}

func (p *packet) free() {
	if p.native != 0 {
		native := p.native
		avPacketFree(&native)
		p.native = 0
	}
}

// streamIndex reads the stream_index field of the underlying AVPacket.
// The field sits right after the data/size/pts/dts block in libavcodec's
// public packet.h layout.
const offPktStreamIndex = 36

func (p *packet) streamIndex() int32 {
	return readInt32(p.native, offPktStreamIndex)
}

func (p *packet) setStreamIndex(idx int32) {
	writeInt32(p.native, offPktStreamIndex, idx)
}

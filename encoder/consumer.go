/*
NAME
  consumer.go

DESCRIPTION
  consumer.go implements the Encoder's consumer thread: drain encoded
  packets from the backend encoder and interleave them into the muxer,
  waking the foreground on EAGAIN and recording end-of-stream.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package encoder

import "time"

// drainPoll bounds how long the consumer sleeps between drain attempts
// once the backend reports EAGAIN, so it notices exit_flag promptly
// without busy-spinning.
const drainPoll = 1 * time.Millisecond

// runConsumer drains encoded packets from the backend encoder into the
// muxer until exit_flag is set or the encoder signals its own
// end-of-stream (a flush run to EOF), whichever comes first.
func (e *Encoder) runConsumer() {
	defer func() {
		e.isRunning.Store(false)
		e.wakeSender()
		e.wg.Done()
	}()

	for !e.exitFlag.Load() {
		e.ctxMu.Lock()
		eof, err := e.muxer.WritePacket(e.enc)
		e.ctxMu.Unlock()

		if err != nil {
			e.log.Error("encoder consumer: fatal mux error, exiting", "error", err.Error())
			e.encoderEOF.Store(true)
			e.exitFlag.Store(true)
			e.wakeSender()
			return
		}

		// A packet (or several) was drained, or the encoder reported EAGAIN:
		// either way the foreground's input queue may have room now.
		e.wakeSender()

		if eof {
			e.encoderEOF.Store(true)
			return
		}

		time.Sleep(drainPoll)
	}
}

func (e *Encoder) wakeSender() {
	e.sendMu.Lock()
	e.sendCond.Broadcast()
	e.sendMu.Unlock()
}

/*
NAME
  producer.go

DESCRIPTION
  producer.go implements the Decoder's producer thread: drain the backend
  demuxer into a bounded free/ready frame pool, handle EOF by entering
  seek-wait, and exit cooperatively on exit_flag.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package decoder

import (
	"time"

	"github.com/ausocean/pollux/avutil"
	"github.com/ausocean/pollux/framequeue"
	"github.com/ausocean/pollux/perr"
)

// freeSlotPoll is how long the producer blocks on the free queue before
// re-checking exit_flag; it is not a deadline for the caller, just a
// cooperative-cancellation poll interval.
const freeSlotPoll = 1 * time.Millisecond

func (d *Decoder) runProducer() {
	defer func() {
		d.isRunning.Store(false)
		d.wg.Done()
	}()

	for !d.exitFlag.Load() {
		slot, ok := d.pool.Free.Get(freeSlotPoll)
		if !ok {
			continue
		}

		target := slot.Frame
		if d.scaleEnabled {
			target = &d.scratch
		}

		err := d.demux.NextFrame(target)
		if err != nil {
			if perr.Is(err, perr.StreamEnd) {
				d.enterSeekWait(slot)
				continue
			}
			d.log.Error("decoder producer: fatal demux error, exiting", "error", err.Error())
			d.pool.Free.Put(slot)
			d.exitFlag.Store(true)
			return
		}

		if d.scaleEnabled {
			if err := d.scaler.Scale(&d.scratch, slot.Frame); err != nil {
				d.log.Error("decoder producer: scale failed, exiting", "error", err.Error())
				d.pool.Free.Put(slot)
				d.exitFlag.Store(true)
				return
			}
		}

		slot.Frame.State = avutil.SlotNone
		if !d.pool.Ready.Put(slot) {
			return
		}
	}
}

// enterSeekWait stamps slot as an end-of-url sentinel, publishes it to
// the ready queue, and blocks until seek_file signals the condition
// variable or release sets exit_flag.
func (d *Decoder) enterSeekWait(slot *framequeue.Slot) {
	slot.Frame.State = avutil.SlotEndOfURL
	if !d.pool.Ready.Put(slot) {
		return
	}

	d.seekMu.Lock()
	d.state = stateSeekWait
	for d.state == stateSeekWait && !d.exitFlag.Load() {
		d.seekCond.Wait()
	}
	d.seekMu.Unlock()
}

/*
   sched is a delta-queue event scheduler: each entry stores its delay
   relative to the one before it, so advancing time by t only ever costs
   a walk of the entries that actually fire, not the whole queue.

   The queue is instance state, not a package global, so several machines
   can coexist in one process; events are keyed by an opaque `any` owner
   because queued work (a virtio completion IRQ, delayed input delivery)
   isn't always owned by an MMIO device.

   Copyright 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package sched

// Callback runs when a scheduled event's delay elapses.
type Callback func(arg int)

type event struct {
	owner any
	cb    Callback
	arg   int
	delay int
	prev  *event
	next  *event
}

// Scheduler is a delta queue of pending callbacks ordered by time-until-
// fire. The zero value is ready to use.
type Scheduler struct {
	head *event
	tail *event
}

// Add schedules cb to run after delay ticks (Advance calls), tagged with
// owner for later Cancel. delay == 0 runs cb immediately, inline.
func (s *Scheduler) Add(owner any, cb Callback, delay, arg int) {
	if delay <= 0 {
		cb(arg)
		return
	}

	ev := &event{owner: owner, cb: cb, arg: arg, delay: delay}

	cur := s.head
	if cur == nil {
		s.head = ev
		s.tail = ev
		return
	}

	for cur != nil {
		if ev.delay <= cur.delay {
			cur.delay -= ev.delay
			ev.prev = cur.prev
			ev.next = cur
			cur.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				s.head = ev
			}
			return
		}
		ev.delay -= cur.delay
		cur = cur.next
	}

	ev.prev = s.tail
	s.tail.next = ev
	s.tail = ev
}

// Cancel removes the first pending event matching owner and arg, if any.
func (s *Scheduler) Cancel(owner any, arg int) {
	for ev := s.head; ev != nil; ev = ev.next {
		if ev.owner != owner || ev.arg != arg {
			continue
		}
		if ev.next != nil {
			ev.next.delay += ev.delay
			ev.next.prev = ev.prev
		} else {
			s.tail = ev.prev
		}
		if ev.prev != nil {
			ev.prev.next = ev.next
		} else {
			s.head = ev.next
		}
		return
	}
}

// Advance moves time forward by t ticks, firing every event whose delay
// has elapsed.
func (s *Scheduler) Advance(t int) {
	ev := s.head
	if ev == nil {
		return
	}
	ev.delay -= t
	for ev != nil && ev.delay <= 0 {
		over := ev.delay
		ev.cb(ev.arg)
		s.head = ev.next
		if s.head != nil {
			s.head.prev = nil
			s.head.delay += over
		} else {
			s.tail = nil
		}
		ev = s.head
	}
}

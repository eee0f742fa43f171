/*
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

import "testing"

func TestAddFiresInDelayOrder(t *testing.T) {
	var s Scheduler
	var order []string

	s.Add("a", func(int) { order = append(order, "a") }, 5, 0)
	s.Add("b", func(int) { order = append(order, "b") }, 2, 0)
	s.Add("c", func(int) { order = append(order, "c") }, 8, 0)

	s.Advance(2)
	if len(order) != 1 || order[0] != "b" {
		t.Fatalf("after advancing 2, got %v, want [b]", order)
	}

	s.Advance(3)
	if len(order) != 2 || order[1] != "a" {
		t.Fatalf("after advancing to 5, got %v, want [b a]", order)
	}

	s.Advance(3)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("after advancing to 8, got %v, want [b a c]", order)
	}
}

func TestAddSameDelayBothFire(t *testing.T) {
	var s Scheduler
	var order []string
	s.Add("a", func(int) { order = append(order, "a") }, 10, 0)
	s.Add("b", func(int) { order = append(order, "b") }, 10, 0)
	s.Advance(10)
	if len(order) != 2 {
		t.Fatalf("got %v, want both to fire at the same tick", order)
	}
}

func TestAddZeroDelayRunsInline(t *testing.T) {
	var s Scheduler
	ran := false
	s.Add("x", func(int) { ran = true }, 0, 0)
	if !ran {
		t.Fatal("zero-delay callback should run immediately")
	}
}

func TestAddDuringCallbackIsScheduledFromNow(t *testing.T) {
	var s Scheduler
	var order []string
	s.Add("c", func(int) {
		order = append(order, "c")
		s.Add("a", func(int) { order = append(order, "a") }, 10, 0)
	}, 10, 0)

	for i := 0; i < 30; i++ {
		s.Advance(1)
	}
	if len(order) != 2 || order[0] != "c" || order[1] != "a" {
		t.Fatalf("got %v, want [c a]", order)
	}
}

func TestCancelRemovesPendingEvent(t *testing.T) {
	var s Scheduler
	fired := false
	s.Add("owner", func(int) { fired = true }, 10, 7)
	s.Cancel("owner", 7)
	s.Advance(20)
	if fired {
		t.Fatal("canceled event must not fire")
	}
}

func TestCancelPreservesLaterEventsDelay(t *testing.T) {
	var s Scheduler
	var order []int
	s.Add("a", func(arg int) { order = append(order, arg) }, 3, 1)
	s.Add("b", func(arg int) { order = append(order, arg) }, 5, 2)
	s.Cancel("a", 1)

	s.Advance(5)
	if len(order) != 1 || order[0] != 2 {
		t.Fatalf("got %v, want [2] at t=5 once the earlier event is canceled", order)
	}
}

func TestCancelOnlyMatchingOwnerAndArg(t *testing.T) {
	var s Scheduler
	var fired []int
	s.Add("owner", func(arg int) { fired = append(fired, arg) }, 5, 1)
	s.Add("owner", func(arg int) { fired = append(fired, arg) }, 5, 2)
	s.Cancel("owner", 1)
	s.Advance(5)
	if len(fired) != 1 || fired[0] != 2 {
		t.Fatalf("got %v, want only arg 2 to survive", fired)
	}
}

func TestArgPassedToCallback(t *testing.T) {
	var s Scheduler
	var got int
	s.Add("owner", func(arg int) { got = arg }, 1, 99)
	s.Advance(1)
	if got != 99 {
		t.Fatalf("got %d, want 99", got)
	}
}

/*
   Copyright (c) 2024, Richard Cornwell

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

package uart

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestStoreToTHRWritesOut(t *testing.T) {
	var out bytes.Buffer
	u := New(0x1000, &out, nil)
	u.Store(0x1000+regTHR, 1, 'A')
	if out.String() != "A" {
		t.Fatalf("got %q, want %q", out.String(), "A")
	}
}

func TestLSRReportsEmptyTransmitterWithNoInput(t *testing.T) {
	u := New(0x1000, io.Discard, nil)
	lsr := u.Load(0x1000+regLSR, 1)
	if lsr&lsrThrEmpty == 0 || lsr&lsrTransEmpty == 0 {
		t.Fatalf("got lsr=%#x, want THR/transmitter empty bits set", lsr)
	}
	if lsr&lsrDataReady != 0 {
		t.Fatal("no input should mean no data-ready bit")
	}
}

func TestInputPumpDeliversBytesToRBR(t *testing.T) {
	r, w := io.Pipe()
	u := New(0x2000, io.Discard, r)
	defer u.Shutdown()

	go func() {
		w.Write([]byte{0x41})
	}()

	deadline := time.After(time.Second)
	for {
		if u.Load(0x2000+regLSR, 1)&lsrDataReady != 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for input byte to arrive")
		default:
		}
	}

	if b := u.Load(0x2000+regRBR, 1); b != 0x41 {
		t.Fatalf("got %#x, want 0x41", b)
	}
}

func TestPendingRequiresRxInterruptEnable(t *testing.T) {
	r, w := io.Pipe()
	u := New(0x3000, io.Discard, r)
	defer u.Shutdown()

	go func() { w.Write([]byte{0x55}) }()

	deadline := time.After(time.Second)
	for u.Load(0x3000+regLSR, 1)&lsrDataReady == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for input byte to arrive")
		default:
		}
	}

	if u.Pending() {
		t.Fatal("Pending should be false until IER enables RX interrupts")
	}
	u.Store(0x3000+regIER, 1, ierRxAvail)
	if !u.Pending() {
		t.Fatal("Pending should be true once RX interrupts are enabled and data is queued")
	}
}

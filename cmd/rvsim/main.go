/*
 * rvsim - Main process.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"

	"github.com/go-riscv/rvsim/internal/config"
	"github.com/go-riscv/rvsim/internal/cpu"
	"github.com/go-riscv/rvsim/internal/device/plic"
	"github.com/go-riscv/rvsim/internal/device/uart"
	"github.com/go-riscv/rvsim/internal/device/virtio"
	"github.com/go-riscv/rvsim/internal/elfload"
	"github.com/go-riscv/rvsim/internal/memory"
	"github.com/go-riscv/rvsim/internal/monitor"
	"github.com/go-riscv/rvsim/internal/progcache"
	"github.com/go-riscv/rvsim/internal/rvlog"
	"github.com/go-riscv/rvsim/internal/timer"
)

var Logger *slog.Logger

func main() {
	optImage := getopt.StringLong("image", 'i', "", "ELF image to load")
	optMode := getopt.StringLong("mode", 'm', "userspace", "Execution mode: userspace|bare")
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Verbose logging")
	optMonitor := getopt.BoolLong("monitor", 'M', "Drop into the interactive monitor instead of running free")
	optDisk := getopt.StringLong("disk", 'D', "", "Disk image for the virtio block device (bare-metal mode)")
	optTimeout := getopt.IntLong("timeout", 't', 0, "Wall-clock run limit in seconds (0 = none)")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	level := slog.LevelInfo
	if *optDebug {
		level = slog.LevelDebug
	}
	Logger = rvlog.New(file, level, *optDebug)
	slog.SetDefault(Logger)

	Logger.Info("rvsim started")
	if *optImage == "" {
		Logger.Error("please specify an ELF image with -i")
		os.Exit(1)
	}

	cfg := &config.Config{}
	if *optConfig != "" {
		var err error
		cfg, err = config.Load(*optConfig)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
	}

	data, err := os.ReadFile(*optImage)
	if err != nil {
		Logger.Error("reading image", "error", err)
		os.Exit(1)
	}
	pf, err := elfload.Load(data)
	if err != nil {
		Logger.Error("loading elf", "error", err)
		os.Exit(1)
	}

	mode := cpu.ModeUser
	if *optMode == "bare" {
		mode = cpu.ModeBareMetal
	}

	// Bare-metal kernels load at the fixed kernel base with MMIO below it;
	// user-space images start at whatever low address the ELF asks for.
	imageBase := uint64(0)
	if mode == cpu.ModeBareMetal {
		imageBase = uint64(cfg.Int("kernel_base", 0x80000000))
	}
	image := memory.NewDense(imageBase, uint64(cfg.Int("image_size", 0x1000000)))
	bus := memory.NewBus(image)
	elfload.LoadInto(pf, bus)

	c := cpu.New(pf.XLen, mode, bus)
	c.PC = pf.Entry
	c.Brk = pf.EndOfData
	c.Cache = progcache.New(image.Base(), image.Base()+image.Len())
	words := make([]uint32, image.Len()/4)
	for i := range words {
		words[i] = bus.LoadWord(image.Base() + uint64(i)*4)
	}
	c.Cache.Populate(words, pf.XLen)

	if mode == cpu.ModeUser {
		c.SetX(2, elfload.InitialSP(pf.XLen)) // sp
	} else {
		setupBareMetal(c, bus, cfg, *optDisk)
	}

	if *optMonitor {
		monitor.New(c).Run()
		return
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if *optTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*optTimeout)*time.Second)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		Logger.Info("got quit signal")
		cancel()
	}()

	reason := c.Run(ctx, ^uint64(0))
	Logger.Info("run stopped", "reason", reason, "cycles", c.Cycles)

	switch reason {
	case cpu.StopFatal:
		os.Exit(2)
	case cpu.StopHalted:
		os.Exit(int(c.Exit.Code))
	}
	os.Exit(0)
}

// setupBareMetal attaches the MMIO peripherals bare-metal guests expect:
// a 16550 UART on stdio, a PLIC fed by the UART's IRQ line, a CLINT machine
// timer, and optionally a virtio block device backed by a disk image file.
func setupBareMetal(c *cpu.CPU, bus *memory.Bus, cfg *config.Config, diskPath string) {
	uartBase := uint64(cfg.Int("uart_base", 0x10000000))
	plicBase := uint64(cfg.Int("plic_base", 0x0C000000))
	clintBase := uint64(cfg.Int("clint_base", 0x02000000))
	virtioBase := uint64(cfg.Int("virtio_base", 0x10001000))

	u := uart.New(uartBase, os.Stdout, os.Stdin)
	bus.Attach(u)

	p := plic.New(plicBase)
	p.Attach(1, u)
	bus.Attach(p)
	c.PLIC = p

	t := timer.New(time.Duration(cfg.Int("timer_tick_ns", 100)) * time.Nanosecond)
	clint := timer.NewCLINT(clintBase, t)
	bus.Attach(clint)
	c.Timer = t

	if diskPath != "" {
		disk, err := os.ReadFile(diskPath)
		if err != nil {
			Logger.Error("reading disk image", "error", err)
			os.Exit(1)
		}
		blk := virtio.New(virtioBase, bus, disk, c.Sched)
		p.Attach(2, blk)
		bus.Attach(blk)
	}
}

/*
   monitor is the interactive debug REPL: register dump, single-step,
   breakpoints, and raw memory peek/poke against a running CPU.

   A liner-backed prompt feeds a minimum-unique-prefix command table;
   each command gets the parsed argument list and reports whether the
   REPL should exit.

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

package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/go-riscv/rvsim/internal/cpu"
)

type cmd struct {
	name    string
	min     int
	process func(*Monitor, []string) (bool, error)
}

var cmdList = []cmd{
	{name: "registers", min: 1, process: (*Monitor).cmdRegisters},
	{name: "step", min: 1, process: (*Monitor).cmdStep},
	{name: "continue", min: 1, process: (*Monitor).cmdContinue},
	{name: "break", min: 2, process: (*Monitor).cmdBreak},
	{name: "delete", min: 3, process: (*Monitor).cmdDelete},
	{name: "memory", min: 2, process: (*Monitor).cmdMemory},
	{name: "history", min: 1, process: (*Monitor).cmdHistory},
	{name: "poke", min: 2, process: (*Monitor).cmdPoke},
	{name: "quit", min: 1, process: (*Monitor).cmdQuit},
}

// Monitor drives a CPU under interactive control from a liner prompt.
type Monitor struct {
	CPU         *cpu.CPU
	breakpoints map[uint64]bool
}

// New builds a Monitor attached to c.
func New(c *cpu.CPU) *Monitor {
	return &Monitor{CPU: c, breakpoints: make(map[uint64]bool)}
}

// Run reads commands from stdin until "quit" or EOF.
func (m *Monitor) Run() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("rvsim> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("monitor: reading line", "error", err)
			return
		}
		line.AppendHistory(input)

		quit, err := m.dispatch(input)
		if err != nil {
			fmt.Println("error: " + err.Error())
		}
		if quit {
			return
		}
	}
}

func (m *Monitor) dispatch(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := fields[0], fields[1:]

	var match []cmd
	for _, c := range cmdList {
		if matchPrefix(c, name) {
			match = append(match, c)
		}
	}
	switch len(match) {
	case 0:
		return false, fmt.Errorf("command not found: %s", name)
	case 1:
		return match[0].process(m, args)
	default:
		return false, fmt.Errorf("ambiguous command: %s", name)
	}
}

func matchPrefix(c cmd, name string) bool {
	if len(name) < c.min || len(name) > len(c.name) {
		return false
	}
	return c.name[:len(name)] == name
}

func (m *Monitor) cmdRegisters(_ []string) (bool, error) {
	c := m.CPU
	fmt.Printf("pc  = %016x   priv = %d\n", c.PC, c.Priv)
	for i := 0; i < 32; i += 4 {
		fmt.Printf("x%-2d=%016x x%-2d=%016x x%-2d=%016x x%-2d=%016x\n",
			i, c.GetX(uint8(i)), i+1, c.GetX(uint8(i+1)), i+2, c.GetX(uint8(i+2)), i+3, c.GetX(uint8(i+3)))
	}
	return false, nil
}

func (m *Monitor) cmdStep(args []string) (bool, error) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return false, err
		}
		n = int(v)
	}
	for i := 0; i < n && !m.CPU.Halted; i++ {
		m.CPU.Step()
	}
	fmt.Printf("pc = %016x\n", m.CPU.PC)
	return false, nil
}

// cmdContinue single-steps until a breakpoint address is reached, the CPU
// halts, or it has run long enough that it's clearly not going to stop on
// its own (a crude deadman switch; there's no true async interrupt here).
func (m *Monitor) cmdContinue(_ []string) (bool, error) {
	const maxSteps = 1 << 30
	for i := 0; i < maxSteps; i++ {
		if m.CPU.Halted {
			fmt.Println("halted")
			return false, nil
		}
		if m.breakpoints[m.CPU.PC] && i > 0 {
			fmt.Printf("breakpoint hit at %016x\n", m.CPU.PC)
			return false, nil
		}
		m.CPU.Step()
	}
	fmt.Println("step limit reached")
	return false, nil
}

func (m *Monitor) cmdBreak(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: break <addr>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, err
	}
	m.breakpoints[addr] = true
	return false, nil
}

func (m *Monitor) cmdDelete(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: delete <addr>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, err
	}
	delete(m.breakpoints, addr)
	return false, nil
}

func (m *Monitor) cmdMemory(args []string) (bool, error) {
	if len(args) < 1 {
		return false, errors.New("usage: memory <addr> [count]")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, err
	}
	count := 16
	if len(args) > 1 {
		v, err := strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			return false, err
		}
		count = int(v)
	}
	for i := 0; i < count; i += 4 {
		fmt.Printf("%016x: %08x\n", addr+uint64(i), m.CPU.Bus.LoadWord(addr+uint64(i)))
	}
	return false, nil
}

func (m *Monitor) cmdPoke(args []string) (bool, error) {
	if len(args) != 2 {
		return false, errors.New("usage: poke <addr> <word>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, err
	}
	val, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return false, err
	}
	m.CPU.Bus.StoreWord(addr, uint32(val))
	return false, nil
}

// cmdHistory dumps the CPU's recent-instruction-PC ring, oldest first,
// for post-mortem inspection after a crash or unexpected trap.
func (m *Monitor) cmdHistory(_ []string) (bool, error) {
	pcs := m.CPU.History()
	if len(pcs) == 0 {
		fmt.Println("no instructions executed yet")
		return false, nil
	}
	for _, pc := range pcs {
		fmt.Printf("%016x\n", pc)
	}
	return false, nil
}

func (m *Monitor) cmdQuit(_ []string) (bool, error) {
	return true, nil
}

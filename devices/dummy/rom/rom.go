// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rom emulates the boot ROM of the dummy device, which initialises
// RAM from the load table in flash before jumping to the firmware.
package rom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/google/rwinit/devices/dummy"
	"github.com/google/rwinit/internal/config"
	"github.com/google/rwinit/loader"
	"github.com/google/rwinit/memory"
)

// ErrHalted is wrapped by every error which stops the ROM before the entry
// point. Real hardware sits in a tight loop at this point.
var ErrHalted = errors.New("halted before entry")

// Chain represents the next stage in the boot process.
type Chain func() error

// Machine is the state of the device once the ROM has run.
type Machine struct {
	Config *config.Machine
	RAM    *memory.RAM
	Result loader.Result
}

// Reset emulates a power on reset of the dummy device stored at storage.
//
// The flash image is programmed into a fresh address space and every segment
// of its load table is applied. Any failure returns an error wrapping
// ErrHalted, with no way to reach the entry point.
//
// Returns the machine state and the next link in the boot chain, which
// writes the RAM regions to the storage directory and hands over to the
// entry point.
func Reset(storage string) (*Machine, Chain, error) {
	glog.Info("----RESET----")
	glog.Infof("Configuring flash from %q...", storage)

	cfg, err := config.Load(filepath.Join(storage, dummy.MachinePath))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrHalted, err)
	}
	fw, err := os.ReadFile(filepath.Join(storage, dummy.FlashPath))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read flash: %w", ErrHalted, err)
	}
	m, err := PowerOn(cfg, fw)
	if err != nil {
		return m, nil, err
	}

	boot := func() error {
		for _, r := range m.RAM.Regions() {
			if r.ReadOnly {
				continue
			}
			b, err := m.RAM.Snapshot(r.Name)
			if err != nil {
				return err
			}
			p := dummy.SnapshotPath(storage, r.Name)
			if err := os.WriteFile(p, b, 0o644); err != nil {
				return fmt.Errorf("failed to write RAM snapshot %q: %w", p, err)
			}
			glog.V(1).Infof("Wrote %d bytes of %q to %q", len(b), r.Name, p)
		}
		ms, err := dummy.RAMMeasurement(m.RAM)
		if err != nil {
			return err
		}
		glog.Infof("RAM measurement %x", ms)
		glog.Infof("Jumping to entry point 0x%08x", cfg.Entry)
		return nil
	}
	return m, boot, nil
}

// PowerOn builds the machine described by cfg, programs fw into its flash at
// the configured image base and runs the loader over the load table.
func PowerOn(cfg *config.Machine, fw []byte) (*Machine, error) {
	ram, err := cfg.NewRAM()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHalted, err)
	}
	m := &Machine{Config: cfg, RAM: ram}
	if err := ram.Program(cfg.ImageBase, fw); err != nil {
		return m, fmt.Errorf("%w: failed to program %d bytes of flash at 0x%08x: %w", ErrHalted, len(fw), cfg.ImageBase, err)
	}
	glog.Infof("Flash image measurement %x", dummy.ImageMeasurement(fw))

	f, err := cfg.TableFormat()
	if err != nil {
		return m, fmt.Errorf("%w: %w", ErrHalted, err)
	}
	glog.Infof("Loading %s table at 0x%08x", f, cfg.TableAddress)
	m.Result, err = loader.New(ram).LoadProgram(f, cfg.TableAddress)
	if err != nil {
		return m, fmt.Errorf("%w: %w", ErrHalted, err)
	}
	glog.Infof("Initialised %d bytes of RAM from %d segments", m.Result.Bytes, m.Result.Segments)
	return m, nil
}

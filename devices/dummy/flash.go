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

// Package dummy provides a fake device whose flash and RAM live in a local
// directory.
package dummy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/google/rwinit/cmd/flash_tool/devices"
	"github.com/google/rwinit/internal/config"
)

const (
	// MachinePath is the name of the machine config within the storage directory.
	MachinePath = "machine.yaml"
	// FlashPath is the name of the flash image within the storage directory.
	FlashPath = "flash.bin"
)

// Device is a fake device using the local filesystem for storage.
type Device struct {
	machine *config.Machine
	storage string
}

var _ devices.Device = Device{}

// New opens the dummy device stored in the given directory.
//
// A device which has never been flashed is returned along with an error
// wrapping devices.ErrNeedsInit.
func New(storage string) (*Device, error) {
	dStat, err := os.Stat(storage)
	if err != nil {
		return nil, fmt.Errorf("unable to stat device storage dir %q: %w", storage, err)
	}
	if !dStat.Mode().IsDir() {
		return nil, fmt.Errorf("device storage %q is not a directory", storage)
	}

	d := &Device{
		storage: storage,
	}
	mPath := filepath.Join(storage, MachinePath)
	m, err := config.Load(mPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return d, fmt.Errorf("%w: no machine config at %q", devices.ErrNeedsInit, mPath)
		}
		return d, err
	}
	d.machine = m
	return d, nil
}

// Machine returns the config of the machine currently stored on the device.
func (d Device) Machine() (*config.Machine, error) {
	if d.machine == nil {
		return nil, devices.ErrNeedsInit
	}
	return d.machine, nil
}

// ApplyImage writes the flash image to flash.bin and the machine config to
// machine.yaml in the device's storage directory. RAM snapshots left over from
// earlier boots are removed.
func (d Device) ApplyImage(m *config.Machine, image []byte) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to flash invalid machine config: %w", err)
	}
	flash, err := m.Flash()
	if err != nil {
		return err
	}
	if room := uint64(flash.Base) + uint64(flash.Size) - uint64(m.ImageBase); uint64(len(image)) > room {
		return fmt.Errorf("%d byte image does not fit in the %d bytes of %q from 0x%08x", len(image), room, flash.Name, m.ImageBase)
	}
	raw, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal machine config: %w", err)
	}

	fwFile := filepath.Join(d.storage, FlashPath)
	mFile := filepath.Join(d.storage, MachinePath)
	if err := os.WriteFile(fwFile, image, 0o644); err != nil {
		return fmt.Errorf("failed to write flash image to %q: %w", fwFile, err)
	}
	if err := os.WriteFile(mFile, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write machine config to %q: %w", mFile, err)
	}

	stale, err := filepath.Glob(filepath.Join(d.storage, "ram-*.bin"))
	if err != nil {
		return err
	}
	for _, f := range stale {
		glog.V(1).Infof("Removing stale RAM snapshot %q", f)
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("failed to remove %q: %w", f, err)
		}
	}
	return nil
}

// SnapshotPath returns the file a RAM region is dumped to after boot.
func SnapshotPath(storage, region string) string {
	return filepath.Join(storage, fmt.Sprintf("ram-%s.bin", region))
}

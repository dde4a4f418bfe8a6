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

// Package config describes emulated machines: their memory map and where the
// boot ROM finds the load table.
package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/rwinit/memory"
	"github.com/google/rwinit/table"
	"gopkg.in/yaml.v3"
)

// Region is one window of the machine's address space.
type Region struct {
	Name     string `yaml:"name"`
	Base     uint32 `yaml:"base"`
	Size     uint32 `yaml:"size"`
	ReadOnly bool   `yaml:"read_only,omitempty"`
}

// Machine is the configuration of an emulated device.
type Machine struct {
	// ByteOrder is "little" or "big".
	ByteOrder string `yaml:"byte_order"`
	// Format is the load table layout, "flat" or "chain".
	Format string `yaml:"format"`
	// MaxEntries overrides the default capacity of the table format.
	MaxEntries uint32 `yaml:"max_entries,omitempty"`
	// ImageBase is the address the flash image is programmed at.
	ImageBase uint32 `yaml:"image_base"`
	// TableAddress is the address of the table header, or of the chain head.
	TableAddress uint32 `yaml:"table_address"`
	// Entry is the address control passes to once RAM is initialised.
	Entry uint32 `yaml:"entry"`
	// FlashRegion names the region the flash image is programmed into.
	FlashRegion string   `yaml:"flash_region"`
	Regions     []Region `yaml:"regions"`
}

// Parse decodes and validates a machine config.
func Parse(raw []byte) (*Machine, error) {
	m := &Machine{}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}
	return m, nil
}

// Load reads a machine config from path.
func Load(path string) (*Machine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine config %q: %w", path, err)
	}
	return Parse(raw)
}

// Marshal returns the YAML form of m.
func (m *Machine) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Validate checks that m describes a machine which can be built.
func (m *Machine) Validate() error {
	if _, err := m.Order(); err != nil {
		return err
	}
	if _, err := m.TableFormat(); err != nil {
		return err
	}
	if len(m.Regions) == 0 {
		return errors.New("missing field: regions")
	}
	if m.FlashRegion == "" {
		return errors.New("missing field: flash_region")
	}
	flash, err := m.Flash()
	if err != nil {
		return err
	}
	if !contains(flash, m.ImageBase) {
		return fmt.Errorf("image_base 0x%08x is outside region %q", m.ImageBase, flash.Name)
	}
	if !contains(flash, m.TableAddress) {
		return fmt.Errorf("table_address 0x%08x is outside region %q", m.TableAddress, flash.Name)
	}
	return memory.CheckRegions(m.memoryRegions()...)
}

// MappedSize returns the number of bytes NewRAM allocates for m.
func (m *Machine) MappedSize() uint64 {
	return memory.MappedSize(m.memoryRegions()...)
}

func (m *Machine) memoryRegions() []memory.Region {
	rs := make([]memory.Region, 0, len(m.Regions))
	for _, r := range m.Regions {
		rs = append(rs, memory.Region(r))
	}
	return rs
}

func contains(r memory.Region, addr uint32) bool {
	return addr >= r.Base && uint64(addr) < uint64(r.Base)+uint64(r.Size)
}

// Order returns the byte order of the machine.
func (m *Machine) Order() (binary.ByteOrder, error) {
	switch strings.ToLower(m.ByteOrder) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("unknown byte_order %q (expected little or big)", m.ByteOrder)
}

// TableFormat returns the load table format of the machine.
func (m *Machine) TableFormat() (table.Format, error) {
	k, err := table.ParseKind(m.Format)
	if err != nil {
		return table.Format{}, err
	}
	o, err := m.Order()
	if err != nil {
		return table.Format{}, err
	}
	return table.Format{Kind: k, Order: o, MaxEntries: m.MaxEntries}, nil
}

// Flash returns the region holding the flash image.
func (m *Machine) Flash() (memory.Region, error) {
	for _, r := range m.Regions {
		if r.Name == m.FlashRegion {
			return memory.Region(r), nil
		}
	}
	return memory.Region{}, fmt.Errorf("flash_region %q is not one of the regions", m.FlashRegion)
}

// NewRAM powers up a zeroed address space with the machine's memory map.
func (m *Machine) NewRAM() (*memory.RAM, error) {
	o, err := m.Order()
	if err != nil {
		return nil, err
	}
	return memory.NewRAM(o, m.memoryRegions()...)
}

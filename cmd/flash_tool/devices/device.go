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

package devices

import (
	"errors"

	"github.com/google/rwinit/internal/config"
)

// ErrNeedsInit is returned by device drivers when the device has never been
// flashed, so it has no machine config of its own yet.
var ErrNeedsInit = errors.New("device needs initialisation")

// Device represents a flashable device.
//
// Drivers for individual devices are bound to this interface, which allows a
// generic flash tool to program any of them.
type Device interface {
	// Machine returns the machine config the device was last flashed with.
	Machine() (*config.Machine, error)
	// ApplyImage programs image into the device's flash and records m as its
	// machine config.
	ApplyImage(m *config.Machine, image []byte) error
}

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

// Package impl is the implementation of the emulator for the dummy device.
package impl

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/rwinit/devices/dummy/rom"
)

// EmulatorOpts encapsulates the parameters for running the emulator.
type EmulatorOpts struct {
	DeviceStorage string
	// SpinOnHalt makes a halted ROM block until ctx is done.
	SpinOnHalt bool
}

// Main is the entry point for the dummy emulator
func Main(ctx context.Context, opts EmulatorOpts) error {
	_, boot, err := rom.Reset(opts.DeviceStorage)
	if err != nil {
		if opts.SpinOnHalt && errors.Is(err, rom.ErrHalted) {
			glog.Errorf("ROM: %v", err)
			glog.Info("Spinning until interrupted")
			<-ctx.Done()
		}
		return fmt.Errorf("ROM: %w", err)
	}

	if err := boot(); err != nil {
		return fmt.Errorf("boot(): %w", err)
	}

	return nil
}

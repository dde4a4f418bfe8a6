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

// emulator boots the dummy device.
//
// The boot ROM reads the load table from the device's flash image and
// initialises RAM from it before "jumping" to the entry point, which here
// means dumping the writable RAM regions to the device storage directory.
//
// Usage:
//   go run ./cmd/emulator --logtostderr --device_storage=/tmp/dummy_device
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/google/rwinit/cmd/emulator/impl"
)

var (
	deviceStorage = flag.String("device_storage", "", "Directory the dummy device is stored in")
	spinOnHalt    = flag.Bool("spin_on_halt", false, "Hang like the hardware does when the ROM halts, instead of exiting")
)

func main() {
	flag.Parse()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := impl.Main(ctx, impl.EmulatorOpts{
		DeviceStorage: *deviceStorage,
		SpinOnHalt:    *spinOnHalt,
	}); err != nil {
		glog.Exit(err.Error())
	}
}

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

// flash_tool writes a packed flash image and its machine config onto a device.
//
// Currently, the only device is a dummy device, which simply stores the image
// and machine config on local disk.
//
// Usage:
//   go run ./cmd/flash_tool --logtostderr --device=dummy --device_storage=/tmp/dummy_device --image=/tmp/packed/flash.bin --machine=/tmp/packed/machine.yaml
//
// or, to fetch the image from an image server:
//   go run ./cmd/flash_tool --logtostderr --device=dummy --device_storage=/tmp/dummy_device --image_server_url=http://localhost:8000 --image_hash=<sha512>
//
// The first time you use this tool there will be no machine config stored on
// the device and the tool will fail. In this case, use the --force flag to
// initialise the device.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"
	"github.com/google/rwinit/cmd/flash_tool/impl"
)

var (
	deviceID       = flag.String("device", "dummy", "One of [dummy]")
	deviceStorage  = flag.String("device_storage", "", "Storage description string for selected device")
	imageFile      = flag.String("image", "", "File path to read the flash image from")
	machineFile    = flag.String("machine", "", "File path to read the machine config from")
	imageServerURL = flag.String("image_server_url", "", "Base URL of the image server to fetch the image from, instead of --image and --machine")
	imageHash      = flag.String("image_hash", "", "Hex encoded SHA-512 of the image to fetch from the image server")
	fetchTimeout   = flag.Duration("fetch_timeout", time.Minute, "How long to keep retrying the image server")
	force          = flag.Bool("force", false, "Ignore errors and force update")
)

func main() {
	flag.Parse()

	if err := impl.Main(context.Background(), impl.FlashOpts{
		DeviceID:       *deviceID,
		DeviceStorage:  *deviceStorage,
		ImageFile:      *imageFile,
		MachineFile:    *machineFile,
		ImageServerURL: *imageServerURL,
		ImageHash:      *imageHash,
		FetchTimeout:   *fetchTimeout,
		Force:          *force,
	}); err != nil {
		glog.Exit(err.Error())
	}
}

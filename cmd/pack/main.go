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

// pack turns a linked ELF file into a flash image whose load table lets the
// boot ROM initialise .data and .bss before main.
//
// Usage:
//   go run ./cmd/pack --logtostderr --elf=/path/to/firmware.elf --machine=machine.yaml --out_dir=/tmp/packed
//
// The machine config given with --machine is used as a template: its
// table_address and entry fields are overwritten with the values of the
// packed image before it is written to the output directory.
package main

import (
	"context"
	"flag"

	"github.com/golang/glog"
	"github.com/google/rwinit/cmd/pack/impl"
)

var (
	elfFile        = flag.String("elf", "", "ELF file to pack")
	machineFile    = flag.String("machine", "", "Machine config to pack the image for")
	outDir         = flag.String("out_dir", "", "Directory to write flash.bin and machine.yaml into")
	verify         = flag.Bool("verify", true, "Boot the packed image in the emulator and compare RAM against the ELF file")
	imageServerURL = flag.String("image_server_url", "", "If set, the packed image is uploaded to this image server")
)

func main() {
	flag.Parse()

	if err := impl.Main(context.Background(), impl.PackOpts{
		ELFFile:        *elfFile,
		MachineFile:    *machineFile,
		OutDir:         *outDir,
		Verify:         *verify,
		ImageServerURL: *imageServerURL,
	}); err != nil {
		glog.Exit(err.Error())
	}
}

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

// Package impl is the implementation of a util to flash images created by the
// pack tool onto devices.
package impl

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
	"github.com/google/rwinit/cmd/flash_tool/devices"
	"github.com/google/rwinit/devices/dummy"
	"github.com/google/rwinit/devices/dummy/rom"
	"github.com/google/rwinit/internal/client"
	"github.com/google/rwinit/internal/config"
)

// FlashOpts encapsulates flash tool parameters.
type FlashOpts struct {
	DeviceID       string
	DeviceStorage  string
	ImageFile      string
	MachineFile    string
	ImageServerURL string
	ImageHash      string
	FetchTimeout   time.Duration
	Force          bool
}

func Main(ctx context.Context, opts FlashOpts) error {
	m, image, err := readImage(ctx, opts)
	if err != nil {
		return err
	}

	var dev devices.Device
	switch opts.DeviceID {
	case "dummy":
		dev, err = dummy.New(opts.DeviceStorage)
	default:
		return errors.New("device must be one of: 'dummy'")
	}
	if err != nil {
		if !errors.Is(err, devices.ErrNeedsInit) {
			return fmt.Errorf("failed to open device: %w", err)
		}
		err := fmt.Errorf("device needs to be force initialised: %w", err)
		if !opts.Force {
			return err
		}
		glog.Warning(err)
	}

	if err := verifyImage(dev, m, image); err != nil {
		err := fmt.Errorf("failed to validate image: %w", err)
		if !opts.Force {
			return err
		}
		glog.Warning(err)
	}
	glog.Info("Image verified, about to apply to device...")

	if err := dev.ApplyImage(m, image); err != nil {
		return fmt.Errorf("failed to apply image to device: %w", err)
	}
	glog.Infof("Image applied, measurement %x", dummy.ImageMeasurement(image))
	return nil
}

// readImage returns the machine config and flash image, either from local
// files or from the image server.
func readImage(ctx context.Context, opts FlashOpts) (*config.Machine, []byte, error) {
	if opts.ImageServerURL != "" {
		return fetchImage(ctx, opts)
	}
	if len(opts.ImageFile) == 0 {
		return nil, nil, errors.New("must specify image or image_server_url")
	}
	m, err := config.Load(opts.MachineFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read machine config: %w", err)
	}
	image, err := os.ReadFile(opts.ImageFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return m, image, nil
}

func fetchImage(ctx context.Context, opts FlashOpts) (*config.Machine, []byte, error) {
	u, err := url.Parse(opts.ImageServerURL)
	if err != nil {
		return nil, nil, fmt.Errorf("image_server_url is invalid: %w", err)
	}
	hash, err := hex.DecodeString(opts.ImageHash)
	if err != nil || len(hash) != sha512.Size {
		return nil, nil, fmt.Errorf("image_hash %q is not a hex encoded SHA-512", opts.ImageHash)
	}
	c := client.ImageClient{URL: u}

	var image, raw []byte
	operation := func() error {
		var err error
		if image, err = c.GetImage(ctx, hash); err != nil {
			return permanentUnlessRetryable(err)
		}
		if raw, err = c.GetMachine(ctx, hash); err != nil {
			return permanentUnlessRetryable(err)
		}
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	if opts.FetchTimeout > 0 {
		bo.MaxElapsedTime = opts.FetchTimeout
	}
	err = backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), func(e error, d time.Duration) {
		glog.V(1).Infof("Retrying fetch in %v: %v", d, e)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	if got := sha512.Sum512(image); !slices.Equal(got[:], hash) {
		return nil, nil, fmt.Errorf("fetched image has hash %x, want %x", got, hash)
	}
	m, err := config.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("image server returned an invalid machine config: %w", err)
	}
	return m, image, nil
}

func permanentUnlessRetryable(err error) error {
	if client.Retryable(err) {
		return err
	}
	return backoff.Permanent(err)
}

// verifyImage checks that the image boots on the machine it was packed for,
// and that this machine is the one already stored on the device.
func verifyImage(dev devices.Device, m *config.Machine, image []byte) error {
	if cur, err := dev.Machine(); err == nil {
		if !slices.Equal(cur.Regions, m.Regions) {
			return errors.New("image was packed for a different memory map than the device's")
		}
	}
	st, err := rom.PowerOn(m, image)
	if err != nil {
		return err
	}
	glog.V(1).Infof("Image initialises %d bytes of RAM from %d segments", st.Result.Bytes, st.Result.Segments)
	return nil
}

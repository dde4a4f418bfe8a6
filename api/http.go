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

package api

import "fmt"

const (
	// HTTPAddImage is the path of the URL to upload a packed flash image.
	HTTPAddImage = "rwinit/v0/add-image"
	// HTTPGetImage is the path of the URL to download a flash image by hash.
	// The hex encoded SHA-512 of the image is appended as a path element.
	HTTPGetImage = "rwinit/v0/get-image"
	// HTTPGetMachine is the path of the URL to download the machine config an
	// image was packed for. The hex encoded SHA-512 of the image is appended
	// as a path element.
	HTTPGetMachine = "rwinit/v0/get-machine"
	// HTTPGetSegments is the path of the URL to list the load table of an image.
	// The hex encoded SHA-512 of the image is appended as a path element.
	HTTPGetSegments = "rwinit/v0/get-segments"
)

// ImageInfo is returned when an image has been stored.
type ImageInfo struct {
	// SHA512 is the hash under which the image is stored.
	SHA512 []byte
	// Size is the length of the image in bytes.
	Size int
}

// String returns a compact printable representation of an ImageInfo.
func (i ImageInfo) String() string {
	return fmt.Sprintf("{%d bytes sha512: 0x%x}", i.Size, i.SHA512)
}

// SegmentInfo is one entry of the response to HTTPGetSegments.
type SegmentInfo struct {
	Index      int
	Method     Method
	VMA        uint32
	LMA        uint32
	TotalSize  uint32
	BSSSize    uint32
	StoredSize uint32
}

// SegmentInfoFromDescriptor returns the externally visible view of d.
func SegmentInfoFromDescriptor(i int, d Descriptor) SegmentInfo {
	return SegmentInfo{
		Index:      i,
		Method:     d.Method,
		VMA:        d.VMA,
		LMA:        d.LMA,
		TotalSize:  d.TotalSize,
		BSSSize:    d.BSSSize,
		StoredSize: d.StoredSize,
	}
}

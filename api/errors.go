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

import "errors"

// Every load failure wraps exactly one of these. All of them are fatal: a
// machine which hits one must not run its entry point.
var (
	// ErrInvalidDescriptor is returned for unreadable or corrupt descriptors,
	// including unknown method codes.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	// ErrHeaderMismatch is returned when a flat table header fails validation.
	ErrHeaderMismatch = errors.New("load table header mismatch")
	// ErrUnsupportedCodec is returned when no decoder exists for a segment's method.
	ErrUnsupportedCodec = errors.New("unsupported codec")
)

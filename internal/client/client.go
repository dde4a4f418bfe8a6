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

// Package client is an HTTP client for the image server.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/google/rwinit/api"
	"google.golang.org/grpc/status"
)

// ImageClient talks to an image server.
type ImageClient struct {
	// URL is the base URL of the image server.
	URL *url.URL
	// HTTP is used for requests; nil means http.DefaultClient.
	HTTP *http.Client
}

func (c ImageClient) client() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

// AddImage uploads an image together with the machine config it was packed for.
func (c ImageClient) AddImage(ctx context.Context, machine, image []byte) (api.ImageInfo, error) {
	u, err := c.URL.Parse(api.HTTPAddImage)
	if err != nil {
		return api.ImageInfo{}, err
	}
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range []struct {
		name string
		data []byte
	}{{"machine", machine}, {"image", image}} {
		pw, err := w.CreateFormFile(p.name, p.name)
		if err != nil {
			return api.ImageInfo{}, err
		}
		if _, err := pw.Write(p.data); err != nil {
			return api.ImageInfo{}, err
		}
	}
	if err := w.Close(); err != nil {
		return api.ImageInfo{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &body)
	if err != nil {
		return api.ImageInfo{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	r, err := c.client().Do(req)
	if err != nil {
		return api.ImageInfo{}, err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return api.ImageInfo{}, errFromRsp("failed to add image", r)
	}
	var info api.ImageInfo
	err = json.NewDecoder(r.Body).Decode(&info)
	return info, err
}

// GetImage fetches the image with the given SHA-512 hash.
func (c ImageClient) GetImage(ctx context.Context, hash []byte) ([]byte, error) {
	return c.get(ctx, api.HTTPGetImage, hash)
}

// GetMachine fetches the machine config of the image with the given SHA-512 hash.
func (c ImageClient) GetMachine(ctx context.Context, hash []byte) ([]byte, error) {
	return c.get(ctx, api.HTTPGetMachine, hash)
}

// GetSegments fetches the load table of the image with the given SHA-512 hash.
func (c ImageClient) GetSegments(ctx context.Context, hash []byte) ([]api.SegmentInfo, error) {
	b, err := c.get(ctx, api.HTTPGetSegments, hash)
	if err != nil {
		return nil, err
	}
	var segs []api.SegmentInfo
	if err := json.Unmarshal(b, &segs); err != nil {
		return nil, fmt.Errorf("failed to parse segments: %w", err)
	}
	return segs, nil
}

func (c ImageClient) get(ctx context.Context, path string, hash []byte) ([]byte, error) {
	u, err := c.URL.Parse(fmt.Sprintf("%s/%s", path, hex.EncodeToString(hash)))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	r, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return nil, errFromRsp(fmt.Sprintf("failed to fetch %s", path), r)
	}
	return io.ReadAll(r.Body)
}

func errFromRsp(m string, r *http.Response) error {
	b, _ := io.ReadAll(r.Body) // Ignore any error, we want to ensure we return the right status code which we already know.

	msg := fmt.Sprintf("%s: %s", m, string(b))
	return status.New(codeFromHTTPResponse(r.StatusCode), msg).Err()
}

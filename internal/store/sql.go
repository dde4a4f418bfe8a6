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

// Package store contains a content addressable store for packed flash images.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// dialect holds the statements which differ between SQL engines.
type dialect struct {
	create string
	insert string
}

var dialects = map[string]dialect{
	"sqlite3": {
		create: "CREATE TABLE IF NOT EXISTS images (key BLOB PRIMARY KEY, data BLOB, machine BLOB)",
		insert: "INSERT OR IGNORE INTO images (key, data, machine) VALUES (?, ?, ?)",
	},
	"mysql": {
		create: "CREATE TABLE IF NOT EXISTS images (`key` VARBINARY(64) PRIMARY KEY, data LONGBLOB, machine BLOB)",
		insert: "INSERT IGNORE INTO images (`key`, data, machine) VALUES (?, ?, ?)",
	},
}

// ImageStorage is a CAS for flash images keyed by their SHA-512 hash that
// uses a SQL database as its backing store. Each image is stored with the
// machine config it was packed for.
type ImageStorage struct {
	db     *sql.DB
	driver string
}

// NewImageStorage creates a new CAS that uses the given DB as a backend.
// driver is the name the DB was opened with, "sqlite3" or "mysql".
// The DB will be initialized if needed.
func NewImageStorage(db *sql.DB, driver string) (*ImageStorage, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	s := &ImageStorage{
		db:     db,
		driver: driver,
	}
	return s, s.init()
}

// init creates the database tables if needed.
func (s *ImageStorage) init() error {
	_, err := s.db.Exec(dialects[s.driver].create)
	return err
}

// Store stores an image and its machine config under key, which should be
// the hash of the image. An existing entry under the key is left untouched.
func (s *ImageStorage) Store(ctx context.Context, key, image, machine []byte) error {
	_, err := s.db.ExecContext(ctx, dialects[s.driver].insert, key, image, machine)
	return err
}

// Retrieve gets an image and its machine config that were previously stored.
// Returns an error with status code NotFound if there is no such image.
func (s *ImageStorage) Retrieve(ctx context.Context, key []byte) ([]byte, []byte, error) {
	var image, machine []byte
	row := s.db.QueryRowContext(ctx, "SELECT data, machine FROM images WHERE `key`=?", key)
	if err := row.Scan(&image, &machine); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, status.Errorf(codes.NotFound, "no image with hash %x", key)
		}
		return nil, nil, err
	}
	return image, machine, nil
}

// Keys returns the keys of all stored images.
func (s *ImageStorage) Keys(ctx context.Context) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT `key` FROM images ORDER BY `key`")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys [][]byte
	for rows.Next() {
		var k []byte
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

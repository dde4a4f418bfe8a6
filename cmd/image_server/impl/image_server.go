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

// Package impl is the implementation of the image server.
package impl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/golang/glog"
	ih "github.com/google/rwinit/internal/http"
	"github.com/google/rwinit/internal/store"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// ServerOpts encapsulates the parameters for running the image server.
type ServerOpts struct {
	ListenAddr string
	DBDriver   string
	DBDSN      string
}

// Main serves images until ctx is done.
func Main(ctx context.Context, opts ServerOpts) error {
	if len(opts.DBDSN) == 0 {
		return errors.New("db_dsn is required")
	}
	glog.Infof("Connecting to %s DB at %q", opts.DBDriver, opts.DBDSN)
	db, err := sql.Open(opts.DBDriver, opts.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer db.Close()

	h, err := NewHandler(ctx, db, opts.DBDriver)
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", opts.ListenAddr, err)
	}

	srv := http.Server{
		Handler: h,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		glog.Info("HTTP server goroutine started")
		defer glog.Info("HTTP server goroutine done")
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		glog.Info("HTTP server-shutdown goroutine started")
		defer glog.Info("HTTP server-shutdown goroutine done")
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}

// NewHandler returns the image server's routes backed by db.
func NewHandler(ctx context.Context, db *sql.DB, driver string) (http.Handler, error) {
	s, err := store.NewImageStorage(db, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create image storage: %w", err)
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored images: %w", err)
	}
	glog.Infof("Serving %d stored images", len(keys))
	for _, k := range keys {
		glog.V(1).Infof("Image %x", k)
	}

	r := mux.NewRouter()
	ih.NewServer(s).RegisterHandlers(r)
	return r, nil
}

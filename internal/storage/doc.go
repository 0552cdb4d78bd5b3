// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

// Package storage hides the resources directory behind a key-value Store.
//
// Handlers and services address artifacts by logical key
// ("compute-homography/map_points.json"); AFSStore maps keys onto a viant/afs
// URL. NewDiskStore serves production from the local filesystem and
// NewMemoryStore backs tests with an isolated mem:// namespace.
// LocalPath translates a key into the OS path handed to homography.py.
package storage

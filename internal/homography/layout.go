// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package homography

import "github.com/tomtom215/homography-backend/internal/storage"

// Working directories. They double as lock keys.
const (
	ComputeDir   = "compute-homography"
	VisualizeDir = "visualize-homography"
	UploadsDir   = "uploads"
)

// File names shared with homography.py.
const (
	ImagePointsFile    = "image_points.json"
	MapPointsFile      = "map_points.json"
	MatrixFile         = "homography_matrix.npy"
	VisImagePointsFile = "vis_image_points.json"
	BoundaryPointsFile = "boundary_points.json"
	MapImageFile       = "cricket_map.png"
	StitchedImageFile  = "annotated_stitched_image.png"
	FrameFile          = "ground_frame.png"
)

// Script modes.
const (
	ModeCompute = "compute_homography"
	ModeApply   = "apply_homography"
)

// Storage keys of the fixed artifacts.
var (
	ImagePointsKey = storage.Join(ComputeDir, ImagePointsFile)
	MapPointsKey   = storage.Join(ComputeDir, MapPointsFile)
	MatrixKey      = storage.Join(ComputeDir, MatrixFile)
	MapImageKey    = storage.Join(VisualizeDir, MapImageFile)
	StitchedKey    = storage.Join(VisualizeDir, StitchedImageFile)
	FrameKey       = storage.Join(UploadsDir, FrameFile)
)

// visualizePointsKey picks the points file homography.py reads for the
// requested overlay.
func visualizePointsKey(isBoundary bool) string {
	if isBoundary {
		return storage.Join(VisualizeDir, BoundaryPointsFile)
	}
	return storage.Join(VisualizeDir, VisImagePointsFile)
}

// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

// Package homography implements the annotation workflow on top of the
// resources store and homography.py.
//
// The store layout is the contract with the script:
//
//	compute-homography/{image_points,map_points}.json   written by Compute
//	compute-homography/homography_matrix.npy            written by the script
//	visualize-homography/{vis_image,boundary}_points.json written by Visualize
//	visualize-homography/cricket_map.png                provided by the operator
//	visualize-homography/annotated_stitched_image.png   written by the script
//	uploads/ground_frame.png                            written by Visualize
//
// Each operation holds the locks of the directories it touches for its
// whole duration, so overlapping requests queue instead of racing on the
// same files.
package homography

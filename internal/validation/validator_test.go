// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one shared instance")
	}
}

type backupRequest struct {
	BackupFolder string `json:"backup_folder" validate:"required,foldername"`
}

type modeRequest struct {
	Mode   string `json:"mode" validate:"required,oneof=compute_homography apply_homography"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
	TaskID string `json:"task_id" validate:"omitempty,uuid"`
}

func TestIsFolderName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"match-2026-01-01", true},
		{"run_1", true},
		{"v1.2", true},
		{"A", true},
		{"", false},
		{".", false},
		{"..", false},
		{".hidden", false},
		{"a/b", false},
		{"a\\b", false},
		{"has space", false},
		{"semi;colon", false},
		{strings.Repeat("a", 128), true},
		{strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		if got := IsFolderName(tt.name); got != tt.want {
			t.Errorf("IsFolderName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValidateStruct_FolderName(t *testing.T) {
	if err := ValidateStruct(&backupRequest{BackupFolder: "match-01"}); err != nil {
		t.Errorf("valid folder rejected: %v", err)
	}

	err := ValidateStruct(&backupRequest{BackupFolder: "../etc"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	errs := err.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if errs[0].Field() != "backup_folder" {
		t.Errorf("Field() = %q, want json name backup_folder", errs[0].Field())
	}
	if errs[0].Tag() != "foldername" {
		t.Errorf("Tag() = %q", errs[0].Tag())
	}
}

func TestValidateStruct_Required(t *testing.T) {
	err := ValidateStruct(&backupRequest{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.Message != "backup_folder is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "backup_folder" {
		t.Errorf("Details = %v", apiErr.Details)
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&modeRequest{Mode: "warp", Limit: 900, TaskID: "not-a-uuid"})
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if len(err.Errors()) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(err.Errors()), err)
	}

	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %#v", apiErr.Details["fields"])
	}
	for _, want := range []string{
		"mode must be one of: compute_homography apply_homography",
		"limit must be less than or equal to 500",
		"task_id must be a valid UUID",
	} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("Message %q missing %q", apiErr.Message, want)
		}
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	req := modeRequest{Mode: "apply_homography", Limit: 10, TaskID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	ve := &RequestValidationError{}
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
	if ve.ToAPIError().Message != "Validation failed" {
		t.Errorf("ToAPIError().Message = %q", ve.ToAPIError().Message)
	}
}

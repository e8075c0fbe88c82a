// Copyright 2025 The Code Chatter Authors
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


package core

import "errors"

// Submission validation errors. These are the only errors surfaced
// synchronously to a submitter; everything downstream is recorded on the
// task record instead.
var (
	// ErrEmptyBatch indicates a batch submission contained no files.
	ErrEmptyBatch = errors.New("no files provided")

	// ErrNoProcessableFiles indicates every submitted payload was filtered
	// out before processing.
	ErrNoProcessableFiles = errors.New("no processable files after filtering")

	// ErrInvalidRepoURL indicates a repository URL failed validation.
	ErrInvalidRepoURL = errors.New("invalid git repository URL")

	// ErrTaskNotFound indicates a task lookup for an unknown ID.
	ErrTaskNotFound = errors.New("task not found")
)

// IsValidation reports whether err is a submission-time validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrNoProcessableFiles) ||
		errors.Is(err, ErrInvalidRepoURL)
}

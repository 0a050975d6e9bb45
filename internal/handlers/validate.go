// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation limits for request fields.
const (
	maxTitleLen    = 300
	maxCategoryLen = 100
	maxTaskLen     = 500
	maxNotesLen    = 10_000
	maxPageSize    = 100
)

// validateTitle checks an article title.
func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", errInvalid)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("%w: title is too long (max %d characters)", errInvalid, maxTitleLen)
	}
	return nil
}

// validateCategory checks a checklist category name.
func validateCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: category is required", errInvalid)
	}
	if utf8.RuneCountInString(name) > maxCategoryLen {
		return fmt.Errorf("%w: category is too long (max %d characters)", errInvalid, maxCategoryLen)
	}
	return nil
}

// validateTask checks task text and optional notes.
func validateTask(task, notes string) error {
	if strings.TrimSpace(task) == "" {
		return fmt.Errorf("%w: task is required", errInvalid)
	}
	if utf8.RuneCountInString(task) > maxTaskLen {
		return fmt.Errorf("%w: task is too long (max %d characters)", errInvalid, maxTaskLen)
	}
	return validateNotes(notes)
}

func validateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return fmt.Errorf("%w: notes are too long (max %d characters)", errInvalid, maxNotesLen)
	}
	return nil
}

// validateMove checks a drag-and-drop body.
func validateMove(sourceID, targetID string) error {
	if sourceID == "" || targetID == "" {
		return fmt.Errorf("%w: source_id and target_id are required", errInvalid)
	}
	return nil
}

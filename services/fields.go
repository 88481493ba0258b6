package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tasknotes/tasknotes/broker"
	"tasknotes/tasknotes/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxTitleLength = 255

// Accepted due_date layouts, most specific first.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTaskFields turns request data into column updates. Unknown and
// read-only keys are ignored.
func parseTaskFields(data map[string]interface{}, partial bool) (map[string]interface{}, error) {
	updates := make(map[string]interface{})

	if raw, ok := data["title"]; ok || !partial {
		title, err := requiredTitle(raw)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}

	if raw, ok := data["description"]; ok {
		description, err := optionalString("description", raw)
		if err != nil {
			return nil, err
		}
		updates["description"] = description
	}

	if raw, ok := data["completed"]; ok {
		completed, err := parseBool("completed", raw)
		if err != nil {
			return nil, err
		}
		updates["completed"] = completed
	}

	if raw, ok := data["due_date"]; ok {
		dueDate, err := parseDueDate(raw)
		if err != nil {
			return nil, err
		}
		updates["due_date"] = dueDate
	}

	return updates, nil
}

// parseNoteFields is the note counterpart of parseTaskFields. The task
// reference is returned separately so callers can check its owner first.
func parseNoteFields(data map[string]interface{}, partial bool) (map[string]interface{}, *uuid.UUID, error) {
	updates := make(map[string]interface{})

	if raw, ok := data["title"]; ok || !partial {
		title, err := requiredTitle(raw)
		if err != nil {
			return nil, nil, err
		}
		updates["title"] = title
	}

	if raw, ok := data["content"]; ok {
		content, err := optionalString("content", raw)
		if err != nil {
			return nil, nil, err
		}
		updates["content"] = content
	}

	var taskID *uuid.UUID
	if raw, ok := data["task"]; ok || !partial {
		id, err := parseTaskReference(raw)
		if err != nil {
			return nil, nil, err
		}
		taskID = &id
	}

	return updates, taskID, nil
}

func requiredTitle(raw interface{}) (string, error) {
	title, ok := raw.(string)
	if !ok || strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLength)
	}
	return title, nil
}

func optionalString(field string, raw interface{}) (string, error) {
	if raw == nil {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrValidation, field)
	}
	return value, nil
}

// parseBool accepts JSON booleans and the string forms sent by HTML forms.
func parseBool(field string, raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %s must be a boolean", ErrValidation, field)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", ErrValidation, field)
	}
}

func parseDueDate(raw interface{}) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: due_date must be a datetime string", ErrValidation)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: due_date has wrong format, use RFC 3339", ErrValidation)
}

func parseTaskReference(raw interface{}) (uuid.UUID, error) {
	value, ok := raw.(string)
	if !ok || strings.TrimSpace(value) == "" {
		return uuid.Nil, fmt.Errorf("%w: task is required", ErrValidation)
	}
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: task must be a valid id", ErrValidation)
	}
	return id, nil
}

// recordEvent writes an outbox event inside the caller's transaction.
func recordEvent(tx *gorm.DB, eventType broker.EventType, entity, operation string, userID uuid.UUID, data map[string]interface{}) error {
	event, err := models.NewEvent(string(eventType), entity, operation, userID.String(), data)
	if err != nil {
		return err
	}
	return tx.Create(event).Error
}

package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Joseda-hg/taskmanager/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldUser
	fieldCompleted
)

func buildFormFields() []formField {
	return []formField{
		{Label: "Title"},
		{Label: "User"},
		{Label: "Completed (space/←→)", Value: "no"},
	}
}

func parseFormFields(fields []formField) (model.CreateIntent, error) {
	title := strings.TrimSpace(fields[fieldTitle].Value)
	if title == "" {
		return model.CreateIntent{}, fmt.Errorf("title is required")
	}

	user, err := parseUser(fields[fieldUser].Value)
	if err != nil {
		return model.CreateIntent{}, err
	}

	return model.CreateIntent{
		Title:     title,
		User:      user,
		Completed: fields[fieldCompleted].Value == "yes",
	}, nil
}

func parseUser(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("user is required")
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid user")
	}
	return parsed, nil
}

func isCompletedField(label string) bool {
	return strings.HasPrefix(label, "Completed")
}

func toggleYesNo(value string) string {
	if value == "yes" {
		return "no"
	}
	return "yes"
}

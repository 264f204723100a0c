package tui

import (
	"fmt"

	"github.com/Joseda-hg/taskmanager/internal/model"
)

var sortCycle = []model.SortField{model.SortByID, model.SortByTitle, model.SortByUserID, model.SortByCompleted}

func formatAssignmentSummary(view model.View) string {
	mark := " "
	if view.Completed {
		mark = "x"
	}
	return fmt.Sprintf("[%s] #%d %s (user %d)", mark, view.ID, view.Title, view.User)
}

func nextSortField(current string) model.SortField {
	field := model.ParseSortField(current)
	for i, candidate := range sortCycle {
		if candidate == field {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return model.SortByID
}

func sortLabel(query model.Query) string {
	q := query.Normalize()
	if model.SortField(q.Sort) == model.SortByID {
		return "id"
	}
	return fmt.Sprintf("%s %s", q.Sort, q.Order)
}

package model

type Assignment struct {
	ID        int64
	Title     string
	Completed bool
	UserID    int64
}

// View is the shape an assignment takes outside the service.
type View struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	User      int64  `json:"user"`
	Completed bool   `json:"completed"`
}

type CreateIntent struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	User      int64  `json:"user"`
}

func NewView(assignment Assignment) View {
	return View{
		ID:        assignment.ID,
		Title:     assignment.Title,
		User:      assignment.UserID,
		Completed: assignment.Completed,
	}
}

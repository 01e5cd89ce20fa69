package assignments

import (
	"io"
	"time"
)

const MaxScore = 100

type Submission struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"username,omitempty"`
	TaskName    string     `json:"task_name"`
	Note        string     `json:"note"`
	FileName    string     `json:"file_name,omitempty"`
	FileKey     string     `json:"-"`
	Score       *int       `json:"score"`
	GradedBy    string     `json:"graded_by,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at,omitempty"`
}

func (s Submission) HasFile() bool { return s.FileKey != "" }

// Upload is an optional file attached to a submission.
type Upload struct {
	Name string
	Body io.Reader
}

type SubmitInput struct {
	TaskName string
	Note     string
	File     *Upload
}

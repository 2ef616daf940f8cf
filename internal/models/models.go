package models

import "time"

// SensorData is one file-edit event reported by the IDE sensor
type SensorData struct {
	ID          int64 // SensorData.OID, increases with arrival order
	Time        time.Time
	CurrentSize int
	ClassName   string
}

// Assignment identifies an assignment offering (TASSIGNMENTOFFERING.OID)
type Assignment struct {
	ID       string
	Deadline time.Time
}

// CurrentFileSize is the last size seen for one class of a project
type CurrentFileSize struct {
	ClassName string
	Size      int
}

// StudentProject is the incremental-development feedback kept for one user on one assignment
type StudentProject struct {
	UserID     string
	Assignment Assignment
	FileSizes  map[string]CurrentFileSize // keyed by class name
	EarlyOften EarlyOften

	// LastEventID is the highest SensorData.OID already folded into the
	// score. Events with a larger id are unscored whatever their timestamp.
	LastEventID int64
}

// NewStudentProject starts tracking for a (user, assignment) pair seen for the first time
func NewStudentProject(userID string, assignment Assignment) *StudentProject {
	return &StudentProject{
		UserID:     userID,
		Assignment: assignment,
		FileSizes:  make(map[string]CurrentFileSize),
	}
}

// SetFileSize records the latest known size of a class and returns the previous one
func (p *StudentProject) SetFileSize(className string, size int) (previous int) {
	if p.FileSizes == nil {
		p.FileSizes = make(map[string]CurrentFileSize)
	}
	previous = p.FileSizes[className].Size
	p.FileSizes[className] = CurrentFileSize{ClassName: className, Size: size}
	return previous
}

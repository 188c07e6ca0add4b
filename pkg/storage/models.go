package storage

import "time"

// Molecule is a stored molecular structure, addressed by its content hash.
type Molecule struct {
	ID        uint   `gorm:"primaryKey"`
	Hash      string `gorm:"uniqueIndex;size:64"`
	Name      string `gorm:"index"`
	Formula   string
	Geometry  string `gorm:"type:text"` // serialized coordinates
	CreatedAt time.Time
}

// TaskRecord is one queued computation owned by the coordination layer.
type TaskRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	Spec       string `gorm:"type:text"` // serialized {function, args, kwargs}
	Status     string `gorm:"index;size:16"`
	Tag        string `gorm:"index"`
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Task queue statuses.
const (
	TaskWaiting  = "waiting"
	TaskRunning  = "running"
	TaskComplete = "complete"
	TaskError    = "error"
)

// Heartbeat records one periodic maintenance pass, so operators can see the
// server loop is alive from the datastore side.
type Heartbeat struct {
	ID         uint   `gorm:"primaryKey"`
	ServerName string `gorm:"index"`
	Beat       time.Time
}

// AllModels lists every model auto-migrated at open time.
func AllModels() []any {
	return []any{
		&Molecule{},
		&TaskRecord{},
		&Heartbeat{},
	}
}

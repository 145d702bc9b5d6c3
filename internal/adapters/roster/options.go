package roster

// Columns names the header cells the loader reads.
type Columns struct {
	ID    string
	Name  string
	Group string
	Email string
}

// DefaultColumns matches the header of the course roster export.
var DefaultColumns = Columns{
	ID:    "Student ID",
	Name:  "Student Name",
	Group: "Group #",
	Email: "Email",
}

// Option applies a configuration option to the loader.
type Option func(*loader)

// WithColumns overrides header names. Empty fields keep their default.
func WithColumns(c Columns) Option {
	return func(l *loader) {
		if c.ID != "" {
			l.cols.ID = c.ID
		}
		if c.Name != "" {
			l.cols.Name = c.Name
		}
		if c.Group != "" {
			l.cols.Group = c.Group
		}
		if c.Email != "" {
			l.cols.Email = c.Email
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
)

// ErrPathNotFound marks a required path that does not exist.
var ErrPathNotFound = errors.New("path not found")

// PathCheck names one required path.
type PathCheck struct {
	Label string // e.g. "config", "clinician input", "stage_folder"
	Path  string
	Dir   bool // the path must be a directory
}

// PathError reports one failed PathCheck.
type PathError struct {
	PathCheck
	Err error
}

func (e *PathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Label, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %q: not a directory", e.Label, e.Path)
}

// Unwrap lets errors.Is match ErrPathNotFound as well as the os error.
func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPathNotFound}
	}
	return []error{ErrPathNotFound, e.Err}
}

// Paths returns the folders the config refers to.
func (c *Config) Paths() []PathCheck {
	return []PathCheck{
		{Label: "stage_folder", Path: c.StageFolder, Dir: true},
		{Label: "mart_folder", Path: c.MartFolder, Dir: true},
	}
}

// CheckPaths stats every path and reports all failures at once, joined in
// check order. It returns nil when every path exists.
func CheckPaths(checks ...PathCheck) error {
	var errs []error
	for _, c := range checks {
		fi, err := os.Stat(c.Path)
		switch {
		case err != nil:
			errs = append(errs, &PathError{PathCheck: c, Err: err})
		case c.Dir && !fi.IsDir():
			errs = append(errs, &PathError{PathCheck: c})
		}
	}
	return errors.Join(errs...)
}

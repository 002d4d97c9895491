package datarecording

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ExecInfoTable is the table that holds the properties of a run.
const ExecInfoTable = "exec_info"

const timeLayout = "2006-01-02 15:04:05.000000000"

// ExecInfo is a single property of a simulation run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how and when a simulation was executed.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates the exec_info table in the given recorder.
func NewExecRecorder(recorder DataRecorder) (*ExecRecorder, error) {
	err := recorder.CreateTable(ExecInfoTable, ExecInfo{})
	if err != nil {
		return nil, err
	}

	return &ExecRecorder{recorder: recorder}, nil
}

// Start logs the start time, the command line, and the working directory.
func (e *ExecRecorder) Start() {
	e.add("Start Time", time.Now().Format(timeLayout))
	e.add("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err == nil {
		e.add("Working Directory", cwd)
	}
}

// AddProperty attaches an arbitrary property, such as a configuration value,
// to the run.
func (e *ExecRecorder) AddProperty(property, value string) {
	e.add(property, value)
}

func (e *ExecRecorder) add(property, value string) {
	e.entries = append(e.entries, ExecInfo{Property: property, Value: value})
}

// End writes all properties together with the end time and flushes.
func (e *ExecRecorder) End() error {
	e.add("End Time", time.Now().Format(timeLayout))

	for _, entry := range e.entries {
		if err := e.recorder.InsertData(ExecInfoTable, entry); err != nil {
			return errors.Wrap(err, "record exec info")
		}
	}

	e.entries = nil

	return e.recorder.Flush()
}

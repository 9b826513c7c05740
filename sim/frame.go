package sim

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Frame is a labeled long-format table: one row per array element, with
// dimension columns (agent, technology, region, ...) plus a value column
// named after the frame itself. It is the unit of data exchanged between
// producers, the output cache and the sinks.
type Frame struct {
	// Name identifies the quantity the value column holds. The value
	// column in Data carries the same name.
	Name string
	Data dataframe.DataFrame
}

// NewFrame builds a Frame around df. The value column of df is expected to
// be named name; dimension columns are free-form.
func NewFrame(name string, df dataframe.DataFrame) Frame {
	return Frame{Name: name, Data: df}
}

// Copy returns a deep copy of the frame. Mutating the copy never affects
// the original.
func (f Frame) Copy() Frame {
	return Frame{Name: f.Name, Data: f.Data.Copy()}
}

// Rename relabels the frame as name and renames its value column to match,
// when the old value column is present. The receiver is unchanged.
func (f Frame) Rename(name string) Frame {
	out := Frame{Name: name, Data: f.Data}
	if f.Name != "" && f.Name != name && hasColumn(f.Data, f.Name) {
		out.Data = f.Data.Rename(name, f.Name)
	}
	return out
}

// Nrow reports the number of rows in the frame.
func (f Frame) Nrow() int {
	return f.Data.Nrow()
}

// Err surfaces any deferred dataframe error carried by the underlying table.
func (f Frame) Err() error {
	return f.Data.Error()
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, c := range df.Names() {
		if c == name {
			return true
		}
	}
	return false
}

// columnStrings returns the column's values as strings, or a slice of empty
// strings when the column is absent (so callers can build overwrite columns
// for tables that did not carry them yet).
func columnStrings(df dataframe.DataFrame, name string) []string {
	if hasColumn(df, name) {
		return df.Col(name).Records()
	}
	return make([]string, df.Nrow())
}

// floatColumn builds a float value column for test and demo frames.
func floatColumn(name string, values []float64) series.Series {
	return series.New(values, series.Float, name)
}

// stringColumn builds a string dimension column for test and demo frames.
func stringColumn(name string, values []string) series.Series {
	return series.New(values, series.String, name)
}

package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venuecluster/internal/model"
)

// WriteRun encodes run as indented JSON.
func WriteRun(w io.Writer, run *model.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(run), "export: encode run")
}

// ReadRun decodes a run saved by WriteRun.
func ReadRun(r io.Reader) (*model.Run, error) {
	var run model.Run
	if err := json.NewDecoder(r).Decode(&run); err != nil {
		return nil, eris.Wrap(err, "export: decode run")
	}
	if run.ID == "" {
		return nil, eris.New("export: run has no id")
	}
	return &run, nil
}

// LoadRun reads a run JSON file.
func LoadRun(path string) (*model.Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadRun(f)
}

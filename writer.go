package threatgraph

import (
	"encoding/json"
	"io"

	"github.com/m-mizutani/threatgraph/pkg/errors"
)

// ThreatWriter writes threats as JSON lines.
type ThreatWriter interface {
	Write(threat *Threat) (int, error)
}

type threatWriterImpl struct {
	w io.Writer
}

func (x *threatWriterImpl) Write(threat *Threat) (int, error) {
	raw, err := json.Marshal(threat)
	if err != nil {
		return -1, errors.Wrap(err, "Marshal threat")
	}

	n, err := x.w.Write(append(raw, '\n'))
	if err != nil {
		if err == io.EOF {
			return 0, err
		}
		return -1, errors.Wrap(err, "Writing threat").With("threat", threat.Name)
	}
	return n, nil
}

func NewThreatWriter(w io.Writer) ThreatWriter {
	return &threatWriterImpl{
		w: w,
	}
}

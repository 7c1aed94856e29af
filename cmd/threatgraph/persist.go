package main

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/threatgraph"
	"github.com/m-mizutani/threatgraph/pkg/arguments"
	"github.com/m-mizutani/threatgraph/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPersistCommand(args *arguments.Arguments) *cobra.Command {
	return &cobra.Command{
		Use:   "persist [FILE...]",
		Short: "Persist threats in JSON or YAML files as one run",
		Long: `Persist threats as one run and print the run summary.

A JSON file has an array of threats, a threat, or JSON lines of threats.
A file with .yaml or .yml extension has one or more YAML documents of a threat
or a list of threats. Standard input is read as JSON when FILE is "-" or omitted.`,
		RunE: func(cmd *cobra.Command, files []string) error {
			if err := args.Validate(); err != nil {
				return err
			}

			if len(files) == 0 {
				files = []string{"-"}
			}
			var threats []*threatgraph.Threat
			for _, fpath := range files {
				loaded, err := loadThreats(fpath, cmd.InOrStdin())
				if err != nil {
					return err
				}
				threats = append(threats, loaded...)
			}

			svc, err := args.IngestService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.Ingest(cmd.Context(), threats)
			if result != nil {
				if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
					return werr
				}
			}
			return err
		},
	}
}

func loadThreats(fpath string, stdin io.Reader) ([]*threatgraph.Threat, error) {
	var (
		raw []byte
		err error
	)
	if fpath == "-" {
		raw, err = ioutil.ReadAll(stdin)
	} else {
		raw, err = ioutil.ReadFile(filepath.Clean(fpath))
	}
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read threats").With("file", fpath)
	}

	var threats []*threatgraph.Threat
	switch strings.ToLower(filepath.Ext(fpath)) {
	case ".yaml", ".yml":
		threats, err = decodeYAMLThreats(raw)
	default:
		threats, err = decodeJSONThreats(raw)
	}
	if err != nil {
		return nil, errors.Wrap(err, "Failed to decode threats").With("file", fpath)
	}
	return threats, nil
}

func decodeJSONThreats(raw []byte) ([]*threatgraph.Threat, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var threats []*threatgraph.Threat
		if err := json.Unmarshal(raw, &threats); err != nil {
			return nil, err
		}
		return threats, nil
	}

	var threats []*threatgraph.Threat
	dec := json.NewDecoder(bytes.NewReader(raw))
	for {
		var threat threatgraph.Threat
		if err := dec.Decode(&threat); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		threats = append(threats, &threat)
	}
	return threats, nil
}

func decodeYAMLThreats(raw []byte) ([]*threatgraph.Threat, error) {
	var threats []*threatgraph.Threat
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			continue
		}

		if node.Content[0].Kind == yaml.SequenceNode {
			var list []*threatgraph.Threat
			if err := node.Decode(&list); err != nil {
				return nil, err
			}
			threats = append(threats, list...)
		} else {
			var threat threatgraph.Threat
			if err := node.Decode(&threat); err != nil {
				return nil, err
			}
			threats = append(threats, &threat)
		}
	}
	return threats, nil
}

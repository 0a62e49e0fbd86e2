// Package report serializes the canonical model for handoff to an emitter.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/heefoo/apiloom/internal/apimap"
	"github.com/heefoo/apiloom/internal/model"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// Report bundles the output of one run. APIMap and Typedefs come from the
// schema path, HeaderFunctions from the header path; either may be absent.
type Report struct {
	APIMap          *model.APIMap        `json:"api_map,omitempty" yaml:"api_map,omitempty"`
	Typedefs        *apimap.TypedefTable `json:"typedefs,omitempty" yaml:"typedefs,omitempty"`
	HeaderFunctions []model.Function     `json:"header_functions,omitempty" yaml:"header_functions,omitempty"`
	Errors          []EntityError        `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// EntityError is a per-entity problem that left something out of the model.
type EntityError struct {
	Source  string `json:"source" yaml:"source"`
	Message string `json:"message" yaml:"message"`
}

func (r *Report) AddErrors(source string, errs ...error) {
	for _, err := range errs {
		r.Errors = append(r.Errors, EntityError{Source: source, Message: err.Error()})
	}
}

// Write renders r to w in the given format.
func Write(w io.Writer, format Format, r *Report) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()

	case FormatTable:
		writeTable(w, r)
		return nil

	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func writeTable(w io.Writer, r *Report) {
	var data [][]string

	if r.APIMap != nil {
		for _, e := range r.APIMap.Enums {
			data = append(data, []string{"enum", e.Identifier, fmt.Sprintf("%s, %d members", e.Type, len(e.Members))})
		}
		for _, fn := range r.APIMap.Functions {
			data = append(data, []string{"function", fn.Identifier, Signature(fn)})
		}
		for _, s := range r.APIMap.Structs {
			data = append(data, []string{"struct", s.Identifier, fieldList(s)})
		}
		for _, s := range r.APIMap.Unions {
			data = append(data, []string{"union", s.Identifier, fieldList(s)})
		}
	}
	for _, fn := range r.HeaderFunctions {
		data = append(data, []string{"header", fn.Identifier, Signature(fn)})
	}
	for _, e := range r.Errors {
		data = append(data, []string{"error", e.Source, e.Message})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"KIND", "NAME", "DETAIL"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

// Signature renders fn as a C-like prototype, e.g. `int add(int x, int y)`.
func Signature(fn model.Function) string {
	args := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		if a.Identifier == nil {
			args[i] = a.Type
		} else {
			args[i] = a.Type + " " + *a.Identifier
		}
	}
	return fmt.Sprintf("%s %s(%s)", fn.ReturnType, fn.Identifier, strings.Join(args, ", "))
}

func fieldList(s model.Struct) string {
	fields := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = f.Type + " " + f.Identifier
		if f.BitWidth != nil {
			fields[i] += ":" + strconv.Itoa(int(*f.BitWidth))
		}
	}
	return strings.Join(fields, "; ")
}

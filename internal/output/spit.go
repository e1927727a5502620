// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/staranto/catinfo/internal/attrs"
	"github.com/staranto/catinfo/internal/config"
	"github.com/staranto/catinfo/internal/filters"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"
)

// SliceDiceSpit filters, transforms, sorts and renders the jsonapi document
// in raw according to the command's output flags. parent selects the member
// holding the records, normally "data".
func SliceDiceSpit(raw bytes.Buffer,
	attrs attrs.AttrList,
	cmd *cli.Command,
	parent string,
	w io.Writer) {

	if w == nil {
		w = os.Stdout
	}

	output := cmd.String("output")
	if output == "raw" {
		_, _ = w.Write(raw.Bytes())
		return
	}

	doc := gjson.Parse(raw.String())
	if parent != "" {
		doc = doc.Get(parent)
	}

	// Filter first so the later passes see fewer rows.
	rows := filters.FilterDataset(doc, attrs, cmd.String("filter"))

	if cmd.Bool("local") {
		for a := range attrs {
			attrs[a].TransformSpec += "t"
		}
	}
	transformRows(rows, attrs)

	SortDataset(rows, cmd.String("sort"))

	if err := render(w, output, rows, attrs, cmd); err != nil {
		log.WithError(err).Errorf("failed to render %s output", output)
	}
}

func transformRows(rows []map[string]interface{}, attrs attrs.AttrList) {
	for _, row := range rows {
		for _, attr := range attrs {
			if attr.TransformSpec != "" {
				row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
			}
		}
	}
}

func render(w io.Writer, output string, rows []map[string]interface{}, attrs attrs.AttrList, cmd *cli.Command) error {
	var (
		out []byte
		err error
	)
	switch output {
	case "json":
		out, err = json.Marshal(rows)
	case "yaml":
		out, err = yaml.Marshal(rows)
	default:
		TableWriter(rows, attrs, cmd, w)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// TableWriter renders the result set as an aligned, borderless table honoring
// --color, --titles and the padding config key.
func TableWriter(
	resultSet []map[string]interface{},
	attrs attrs.AttrList,
	cmd *cli.Command,
	w io.Writer) {

	if len(resultSet) == 0 {
		return
	}

	pad, _ := config.GetInt("padding", 0)
	header, even, odd := tableStyles(cmd.Bool("color"))

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := odd
			switch {
			case row == table.HeaderRow:
				style = header
			case row%2 == 0:
				style = even
			}
			if col > 0 {
				style = style.PaddingLeft(pad)
			}
			return style
		}).
		Headers().
		Rows(tableRows(resultSet, attrs)...)

	if cmd.Bool("titles") {
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(tableHeaders(attrs)...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

func tableStyles(color bool) (header, even, odd lipgloss.Style) {
	cell := lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
	header, even, odd = lipgloss.NewStyle().Align(lipgloss.Left), cell, cell
	if color {
		h, e, o := getColors("colors")
		header = header.Foreground(lipgloss.Color(h))
		even = even.Foreground(lipgloss.Color(e))
		odd = odd.Foreground(lipgloss.Color(o))
	}
	return
}

func tableRows(resultSet []map[string]interface{}, attrs attrs.AttrList) [][]string {
	rows := make([][]string, 0, len(resultSet))
	for _, result := range resultSet {
		row := make([]string, 0, len(attrs))
		for _, attr := range attrs {
			if attr.Include {
				row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func tableHeaders(attrs attrs.AttrList) []string {
	var headers []string
	for _, attr := range attrs {
		if attr.Include {
			headers = append(headers, attr.OutputKey)
		}
	}
	return headers
}

// getColors reads the title, even and odd row colors under key.
func getColors(key string) (header, even, odd string) {
	defaults := [3]string{"#f6be00", "#ffffff", "#00c8f0"}
	out := [3]string{}
	for i, name := range [3]string{"title", "even", "odd"} {
		out[i], _ = config.GetString(key+"."+name, defaults[i])
	}
	return out[0], out[1], out[2]
}

// InterfaceToString renders a cell value. Zero values render as the optional
// empty value; lists and objects render as JSON.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if value == nil || reflect.ValueOf(value).IsZero() {
		if len(emptyValue) > 0 {
			return emptyValue[0]
		}
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		// Catalog numbers are whole; table cells show them without decimals.
		return strconv.FormatFloat(v, 'f', 0, 64)
	}

	if b, err := json.Marshal(value); err == nil {
		return string(b)
	}
	return fmt.Sprint(value)
}

// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/apex/log"
)

const maxSchemaDepth = 1

const schemaFooter = `Resource level attributes that are directly available to the --attrs flag.
Nested values (weight.metric, image.url) can be selected with dotted paths.
Use --output=raw to see the full payload, and man catinfo-attrs for the
--attrs syntax.`

// Tag is a jsonapi attr tag discovered while dumping a schema (--schema).
type Tag struct {
	Kind     string
	Name     string
	Encoding string
}

// NewTag parses a jsonapi struct tag. Only attr tags are kept; h prefixes the
// name of attrs nested inside another attr.
func NewTag(h string, s string) Tag {
	parts := strings.Split(s, ",")
	if parts[0] != "attr" {
		return Tag{}
	}

	tag := Tag{Kind: parts[0]}
	if len(parts) > 1 {
		tag.Name = parts[1]
		if h != "" {
			tag.Name = h + "." + parts[1]
		}
	}
	if len(parts) > 2 {
		tag.Encoding = parts[2]
	}
	return tag
}

// Print renders the tag as it is typed into --attrs.
func (t Tag) Print() string {
	return t.Name
}

// DumpSchema writes the sorted attr names of typ to w.
func DumpSchema(w io.Writer, prefix string, typ reflect.Type) {
	tags := DumpSchemaWalker(prefix, typ, 0)
	if len(tags) == 0 {
		log.Debugf("No tags found for type: %s", typ.Name())
		return
	}

	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Kind == tags[j].Kind {
			return tags[i].Name < tags[j].Name
		}
		return tags[i].Kind < tags[j].Kind
	})

	fmt.Fprintln(w, "Schema for", typ.Name(), "--")
	for _, tag := range tags {
		fmt.Fprintln(w, tag.Print())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, schemaFooter)
}

// DumpSchemaWalker collects the attr tags of a struct type, descending one
// level into struct and pointer-to-struct attrs such as weight and image.
func DumpSchemaWalker(holder string, typ reflect.Type, depth int) []Tag {
	tags := make([]Tag, 0, typ.NumField())

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		tagValue, ok := field.Tag.Lookup("jsonapi")
		if !ok {
			continue
		}
		tag := NewTag(holder, tagValue)
		if tag.Kind != "attr" {
			continue
		}
		tags = append(tags, tag)

		if depth >= maxSchemaDepth {
			continue
		}
		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		// time.Time is a struct with no jsonapi tags; walking it is harmless.
		if ft.Kind() == reflect.Struct {
			tags = append(tags, DumpSchemaWalker(tag.Name, ft, depth+1)...)
		}
	}

	return tags
}

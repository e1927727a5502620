// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package attrs

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/staranto/catinfo/internal/config"
)

// Attr is one column of output: where to find it in a record, what to call
// it, and how to transform it.
type Attr struct {
	// Key is the gjson path into a record, e.g. attributes.weight.metric.
	Key string
	// Include is false for attrs kept only for filtering and sorting.
	Include bool
	// OutputKey names the value in json/yaml output and titles the column in
	// text output.
	OutputKey string
	TransformSpec string
}

var lengthRe = regexp.MustCompile(`-?\d+`)

// Transform applies the attr's TransformSpec to value. Letters select
// transforms: b humanizes byte counts, t converts RFC3339 times to the
// configured timezone, l/u change case (the last one wins), and a number
// truncates (negative elides the middle). Non-string values only get b.
func (a *Attr) Transform(value interface{}) interface{} {
	if strings.ContainsAny(a.TransformSpec, "bB") {
		if s, ok := humanBytes(value); ok {
			return s
		}
	}

	result, ok := value.(string)
	if !ok {
		return value
	}

	if strings.ContainsAny(a.TransformSpec, "tT") {
		result = a.localTime(result)
	}

	result = applyCase(a.TransformSpec, result)
	return applyLength(a.TransformSpec, result)
}

func humanBytes(value interface{}) (string, bool) {
	switch n := value.(type) {
	case float64:
		return humanize.IBytes(uint64(n)), true
	case int64:
		return humanize.IBytes(uint64(n)), true
	case int:
		return humanize.IBytes(uint64(n)), true
	}
	return "", false
}

// localTime converts an RFC3339 value to the configured timezone. Without a
// configured timezone the value is left alone. A value that is not a time
// drops t from the spec so later rows are not retried.
func (a *Attr) localTime(value string) string {
	tz := timezone()
	if tz == "" {
		return value
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return value
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Error("failed to parse time: " + value)
		a.TransformSpec = strings.NewReplacer("t", "", "T", "").Replace(a.TransformSpec)
		return value
	}
	return t.In(loc).Format("2006-01-02T15:04:05MST")
}

// applyCase honors whichever of l/u appears last, so an attr's own spec beats
// a prepended global one: --attrs '*::U,name::l' lowercases name.
func applyCase(spec, value string) string {
	lastL := strings.LastIndexAny(spec, "lL")
	lastU := strings.LastIndexAny(spec, "uU")
	switch {
	case lastL > lastU:
		return strings.ToLower(value)
	case lastU > lastL:
		return strings.ToUpper(value)
	}
	return value
}

// applyLength truncates to the last number in spec. A negative length keeps
// both ends around "..".
func applyLength(spec, value string) string {
	match := lengthRe.FindAllString(spec, -1)
	if len(match) == 0 {
		return value
	}
	l, _ := strconv.Atoi(match[len(match)-1])
	abs := int(math.Abs(float64(l)))
	if len(value) <= abs {
		return value
	}
	if l >= 0 {
		return value[:l]
	}
	keep := abs/2 - 1
	return value[:keep] + ".." + value[len(value)-keep:]
}

// timezone looks for CATINFO_TZ, then timezone in the config file, then a
// plain TZ env variable.
func timezone() string {
	if tz := os.Getenv("CATINFO_TZ"); tz != "" {
		return tz
	}
	if tz, _ := config.GetString("timezone", ""); tz != "" {
		return tz
	}
	return os.Getenv("TZ")
}

type AttrList []Attr

// String renders the list in --attrs form.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses each comma separated spec from the --attrs flag into the list.
// A spec is key[:output[:transform]]. A leading ! keeps the attr for
// filtering and sorting but hides it; a leading . addresses the root of each
// record instead of its attributes. Respecifying an attr already in the list
// (a command default, say) updates it in place.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		return nil
	}

	for _, spec := range strings.Split(value, ",") {
		attr := parseSpec(spec)
		if i := a.index(attr.Key); i >= 0 {
			(*a)[i].Include = attr.Include
			(*a)[i].OutputKey = attr.OutputKey
			(*a)[i].TransformSpec = attr.TransformSpec
			continue
		}

		switch {
		case strings.HasPrefix(attr.Key, "."):
			attr.Key = attr.Key[1:]
		case attr.Key != "*":
			attr.Key = "attributes." + attr.Key
		}
		*a = append(*a, attr)
	}

	return nil
}

// parseSpec splits one --attrs entry. The output key defaults to the last
// dotted segment of the key when only a key is given, and to the whole key
// when the output field is present but empty.
func parseSpec(spec string) Attr {
	fields := strings.Split(spec, ":")
	attr := Attr{Include: true, Key: strings.TrimSpace(fields[0])}

	if strings.HasPrefix(attr.Key, "!") {
		attr.Include = false
		attr.Key = attr.Key[1:]
	}
	if attr.Key == "*" {
		attr.Include = false
	}

	switch {
	case len(fields) == 1:
		segments := strings.Split(attr.Key, ".")
		attr.OutputKey = segments[len(segments)-1]
	case fields[1] != "":
		attr.OutputKey = strings.TrimSpace(fields[1])
	default:
		attr.OutputKey = attr.Key
	}

	if len(fields) > 2 {
		attr.TransformSpec = strings.TrimSpace(fields[2])
	}
	return attr
}

// index finds an attr whose key or output key matches the unqualified key.
func (a *AttrList) index(key string) int {
	for i := range *a {
		if (*a)[i].Key == key || (*a)[i].OutputKey == key {
			return i
		}
	}
	return -1
}

// SetGlobalTransformSpec prefixes every attr's transform with the transform
// of the first "*" entry, if there is one.
func (a *AttrList) SetGlobalTransformSpec() error {
	i := slices.IndexFunc(*a, func(attr Attr) bool { return attr.Key == "*" })
	if i < 0 || (*a)[i].TransformSpec == "" {
		return nil
	}

	global := (*a)[i].TransformSpec
	for j := range *a {
		(*a)[j].TransformSpec = global + "," + (*a)[j].TransformSpec
	}
	return nil
}

func (a *AttrList) Type() string {
	return "list"
}

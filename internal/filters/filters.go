// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/catinfo/internal/attrs"
	"github.com/staranto/catinfo/internal/driller"
)

// exprRe splits key, operand and target. The operand is one of = ^ ~ < > @ /
// with an optional leading ! and the key is the shortest prefix before it.
var exprRe = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// rangeRe matches the "low - high" strings the breed catalog uses for weight
// and life_span.
var rangeRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)\s*$`)

// Filter is one parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// holds folds the negation into a raw comparison result.
func (f Filter) holds(ok bool) bool {
	return ok != f.Negate
}

// BuildFilters parses a --filter value. Entries are separated by commas, or by
// CATINFO_FILTER_DELIM when set; malformed entries are logged and dropped.
func BuildFilters(spec string) []Filter {
	if spec == "" {
		return nil
	}

	delim := ","
	if d, ok := os.LookupEnv("CATINFO_FILTER_DELIM"); ok {
		delim = d
	}

	var out []Filter
	for _, expr := range strings.Split(spec, delim) {
		m := exprRe.FindStringSubmatch(expr)
		if m == nil {
			log.Error("invalid filter: " + expr)
			continue
		}
		op, negated := strings.CutPrefix(m[2], "!")
		out = append(out, Filter{Key: m[1], Negate: negated, Operand: op, Target: m[3]})
	}
	return out
}

// FilterDataset keeps the records of candidates that pass every filter in spec
// and projects each onto attrs, keyed by output key. Transforms are left to
// the output stage.
func FilterDataset(candidates gjson.Result, attrs attrs.AttrList, spec string) []map[string]interface{} {
	filters := knownFilters(BuildFilters(spec), attrs)

	var rows []map[string]interface{}
	for _, candidate := range candidates.Array() {
		if !applyFilters(candidate, attrs, filters) {
			continue
		}
		row := make(map[string]interface{}, len(attrs))
		for _, attr := range attrs {
			row[attr.OutputKey] = driller.Driller(candidate.Raw, attr.Key).Value()
		}
		rows = append(rows, row)
	}
	return rows
}

// knownFilters drops filters whose key does not name an attribute, warning
// about each one once.
func knownFilters(filters []Filter, attrs attrs.AttrList) []Filter {
	known := filters[:0]
	for _, f := range filters {
		if attrKey(attrs, f.Key) != "" {
			known = append(known, f)
			continue
		}
		msg := fmt.Sprintf("filter key not found: %s", f.Key)
		log.Error(msg)
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
	}
	return known
}

// attrKey maps a filter key, which is an output key, to the JSON key it selects.
func attrKey(attrs attrs.AttrList, outputKey string) string {
	for _, attr := range attrs {
		if attr.OutputKey == outputKey {
			return attr.Key
		}
	}
	return ""
}

// applyFilters reports whether candidate passes every filter. A missing value
// fails; a filter on an unknown key is ignored.
func applyFilters(candidate gjson.Result, attrs attrs.AttrList, filters []Filter) bool {
	for _, f := range filters {
		key := attrKey(attrs, f.Key)
		if key == "" {
			continue
		}
		value := driller.Driller(candidate.Raw, key).Value()
		if value == nil || !matches(value, f) {
			return false
		}
	}
	return true
}

func matches(value interface{}, f Filter) bool {
	switch v := value.(type) {
	case string:
		if lo, hi, ok := parseRange(v); ok && f.Operand == "@" {
			return checkRangeOperand(lo, hi, f)
		}
		return checkStringOperand(v, f)
	case bool:
		return checkStringOperand(strconv.FormatBool(v), f)
	}
	if num, ok := toFloat64(value); ok {
		return checkNumericOperand(num, f)
	}
	if f.Operand == "@" {
		return checkContainsOperand(value, f)
	}
	return true
}

// checkContainsOperand tests membership of the target in a list value, or
// presence as a key in an object value.
func checkContainsOperand(value interface{}, f Filter) bool {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if item == f.Target {
				return f.holds(true)
			}
		}
		return f.holds(false)
	case map[string]any:
		_, found := v[f.Target]
		return f.holds(found)
	}
	log.Error(fmt.Sprintf("unsupported type for contains filtering: %T", value))
	return false
}

func parseRange(v string) (lo, hi float64, ok bool) {
	m := rangeRe.FindStringSubmatch(v)
	if m == nil {
		return 0, 0, false
	}
	var err error
	if lo, err = strconv.ParseFloat(m[1], 64); err != nil {
		return 0, 0, false
	}
	if hi, err = strconv.ParseFloat(m[2], 64); err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// checkRangeOperand tests an inclusive range, so life_span@14 matches
// "14 - 15". A target that is not a number is matched as a substring of the
// range text.
func checkRangeOperand(lo, hi float64, f Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(f.Target), 64)
	if err != nil {
		return f.holds(strings.Contains(fmt.Sprintf("%g - %g", lo, hi), f.Target))
	}
	return f.holds(tgt >= lo && tgt <= hi)
}

// checkNumericOperand supports =, < and >. A target that is not a number never
// matches.
func checkNumericOperand(value float64, f Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(f.Target), 64)
	if err != nil {
		log.Error("invalid numeric target: " + f.Target)
		return false
	}

	switch f.Operand {
	case "=":
		return f.holds(value == tgt)
	case ">":
		return f.holds(value > tgt)
	case "<":
		return f.holds(value < tgt)
	}
	log.Error("unsupported numeric operand: " + f.Operand)
	return false
}

func checkStringOperand(value string, f Filter) bool {
	switch f.Operand {
	case "=":
		return f.holds(value == f.Target)
	case "~":
		return f.holds(strings.EqualFold(value, f.Target))
	case "^":
		return f.holds(strings.HasPrefix(value, f.Target))
	case ">":
		return f.holds(value > f.Target)
	case "<":
		return f.holds(value < f.Target)
	case "@":
		return f.holds(strings.Contains(value, f.Target))
	case "/":
		re, err := regexp.Compile(f.Target)
		if err != nil {
			log.Error("invalid regex: " + f.Target)
			return false
		}
		return f.holds(re.MatchString(value))
	}
	log.Error("unsupported filtering operand: " + f.Operand)
	return false
}

// toFloat64 widens any Go integer or float kind.
func toFloat64(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanFloat():
		return rv.Float(), true
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	}
	return 0, false
}

// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package driller

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Driller walks json along a dotted path. A segment may carry one or more
// [n] indexes. Keys are matched literally, so hyphens and other characters
// gjson treats as syntax are safe. A single element array is transparent:
// it is stepped through when the path continues and unwrapped at the end.
// A missing key or out of range index yields the zero Result.
func Driller(json, path string) gjson.Result {
	cur := gjson.Parse(json)

	for _, seg := range strings.Split(path, ".") {
		name, idxs, ok := splitSegment(seg)
		if !ok {
			return gjson.Result{}
		}

		if name != "" {
			cur = child(cur, name)
		}
		for _, i := range idxs {
			cur = element(cur, i)
		}

		if !cur.Exists() {
			return gjson.Result{}
		}
	}

	return unwrap(cur)
}

func splitSegment(seg string) (string, []int, bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, nil, true
	}

	name := seg[:open]
	var idxs []int
	rest := seg[open:]
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, false
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 0 {
			return "", nil, false
		}
		idxs = append(idxs, n)
		rest = rest[end+1:]
	}
	return name, idxs, true
}

func child(r gjson.Result, key string) gjson.Result {
	r = unwrap(r)
	if !r.IsObject() {
		return gjson.Result{}
	}

	var found gjson.Result
	r.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = v
			return false
		}
		return true
	})
	return found
}

func element(r gjson.Result, i int) gjson.Result {
	if !r.IsArray() {
		return gjson.Result{}
	}
	arr := r.Array()
	if i >= len(arr) {
		return gjson.Result{}
	}
	return arr[i]
}

func unwrap(r gjson.Result) gjson.Result {
	if r.IsArray() {
		if arr := r.Array(); len(arr) == 1 {
			return arr[0]
		}
	}
	return r
}

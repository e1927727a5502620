// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/urfave/cli/v3"
)

// breedIDRegex matches catalog breed ids (abys, beng, ...).
var breedIDRegex = regexp.MustCompile(`^[a-z0-9]{1,16}$`)

// GlobalFlagsValidator checks combinations no single flag validator can see.
func GlobalFlagsValidator(_ context.Context, c *cli.Command) error {
	if c.String("output") == "raw" && c.String("filter") != "" {
		return errors.New("--filter has no effect with --output=raw")
	}
	return nil
}

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func MustBeTrueValidator(value any) error {
	if !value.(bool) {
		return errors.New("must be true")
	}
	return nil
}

func OutputValidator(value any) error {
	var validOutputFlagValues = []string{"text", "json", "raw", "yaml"}
	valid := false
	for _, v := range validOutputFlagValues {
		if v == value {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("must be one of %v", validOutputFlagValues)
	}
	return nil
}

func PositiveIntValidator(value any) error {
	if value.(int) < 1 {
		return errors.New("must be greater than 0")
	}
	return nil
}

func NonNegativeIntValidator(value any) error {
	if value.(int) < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

// BreedIDValidator accepts an empty value so optional breed flags can be left
// unset.
func BreedIDValidator(value any) error {
	v := value.(string)
	if v == "" || breedIDRegex.MatchString(v) {
		return nil
	}
	return fmt.Errorf("invalid breed id %q", v)
}

// URLValidator requires an absolute http(s) URL, or nothing.
func URLValidator(value any) error {
	v := value.(string)
	if v == "" {
		return nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q", v)
	}
	return nil
}

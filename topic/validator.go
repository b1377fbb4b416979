// Package topic validates MQTT topic names and topic filters before they
// reach the wire: publication topics must not carry wildcards, filters
// must use them within the level rules, and both are bounded by the
// 65535-byte string limit.
package topic

import (
	"strings"
	"unicode/utf8"

	merrors "github.com/axmq/mqttv5/errors"
)

const sharedPrefix = "$share/"

// ValidateName checks a publication topic name. Names may not be empty,
// may not contain wildcards or U+0000, and must be valid UTF-8 within the
// length-prefixed string limit.
func ValidateName(name string) error {
	if err := validateCommon(name, "topic name"); err != nil {
		return err
	}
	if strings.ContainsAny(name, "+#") {
		return merrors.Wrap(merrors.ErrProtocolError, "topic name cannot contain wildcard characters")
	}
	return nil
}

// ValidateFilter checks a subscription topic filter, including the
// wildcard level rules: '#' must be the final level and occupy it alone,
// '+' must occupy its level alone. Shared subscription filters
// ("$share/group/filter") are validated against the same rules after the
// group prefix.
func ValidateFilter(filter string) error {
	if err := validateCommon(filter, "topic filter"); err != nil {
		return err
	}
	if IsShared(filter) {
		_, inner, err := SplitShared(filter)
		if err != nil {
			return err
		}
		filter = inner
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") {
			if level != "#" {
				return merrors.Wrap(merrors.ErrProtocolError, "multi-level wildcard must occupy an entire level")
			}
			if i != len(levels)-1 {
				return merrors.Wrap(merrors.ErrProtocolError, "multi-level wildcard must be the final level")
			}
		}
		if strings.Contains(level, "+") && level != "+" {
			return merrors.Wrap(merrors.ErrProtocolError, "single-level wildcard must occupy an entire level")
		}
	}
	return nil
}

// IsShared reports whether filter is a shared subscription.
func IsShared(filter string) bool { return strings.HasPrefix(filter, sharedPrefix) }

// SplitShared splits a shared subscription filter into its group name and
// inner topic filter. The group name may not be empty or contain
// wildcards.
func SplitShared(filter string) (group, inner string, err error) {
	rest, ok := strings.CutPrefix(filter, sharedPrefix)
	if !ok {
		return "", "", merrors.Wrap(merrors.ErrProtocolError, "shared subscription must start with $share/")
	}
	group, inner, ok = strings.Cut(rest, "/")
	if !ok || group == "" || inner == "" {
		return "", "", merrors.Wrap(merrors.ErrProtocolError, "shared subscription requires a group name and a topic filter")
	}
	if strings.ContainsAny(group, "+#") {
		return "", "", merrors.Wrap(merrors.ErrProtocolError, "shared subscription group name cannot contain wildcards")
	}
	return group, inner, nil
}

func validateCommon(s, what string) error {
	if s == "" {
		return merrors.Wrapf(merrors.ErrProtocolError, "%s cannot be empty", what)
	}
	if len(s) > 65535 {
		return merrors.Wrapf(merrors.ErrProtocolError, "%s exceeds 65535 bytes", what)
	}
	if !utf8.ValidString(s) {
		return merrors.Wrapf(merrors.ErrProtocolError, "%s is not valid UTF-8", what)
	}
	if strings.ContainsRune(s, 0) {
		return merrors.Wrapf(merrors.ErrProtocolError, "%s cannot contain U+0000", what)
	}
	return nil
}

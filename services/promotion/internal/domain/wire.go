package domain

import (
	"time"
)

// DateLayout is the wire format of every date field.
const DateLayout = "2006-01-02"

// Rule is the conversion applied to a field between the wire and the entity.
type Rule int

const (
	RulePlainString Rule = iota
	RuleDate
	// RuleStrictTrueBool treats only the exact string "True" as true. Any
	// other value, including "true", "1" and JSON true, is false.
	RuleStrictTrueBool
)

// wireFields lists the converted fields in the order they are checked, so
// the reported error is deterministic.
var wireFields = []struct {
	name string
	rule Rule
}{
	{FieldStartDate, RuleDate},
	{FieldEndDate, RuleDate},
	{FieldWholeStore, RuleStrictTrueBool},
	{FieldHasBeenExtended, RuleStrictTrueBool},
	{FieldOriginalEndDate, RuleDate},
	{FieldPromotionChangesPrice, RuleStrictTrueBool},
}

// RuleFor returns the conversion rule for a payload key. Unknown keys are
// plain strings and pass through untouched.
func RuleFor(field string) Rule {
	for _, f := range wireFields {
		if f.name == field {
			return f.rule
		}
	}
	return RulePlainString
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Inbound converts a wire payload in place: date strings become time.Time
// and flags become bool. Only keys present in payload are touched.
func Inbound(payload Payload) error {
	for _, f := range wireFields {
		v, ok := payload[f.name]
		if !ok {
			continue
		}
		switch f.rule {
		case RuleDate:
			s, ok := v.(string)
			if !ok {
				return invalidFormat(f.name, "could not convert "+f.name)
			}
			t, err := ParseDate(s)
			if err != nil {
				return invalidFormat(f.name, "could not convert "+f.name)
			}
			payload[f.name] = t
		case RuleStrictTrueBool:
			payload[f.name] = v == "True"
		}
	}
	return nil
}

// Outbound converts a serialized payload in place for the wire: dates
// become YYYY-MM-DD and flags become "True" or "False".
func Outbound(payload Payload) error {
	for _, f := range wireFields {
		v, ok := payload[f.name]
		if !ok {
			continue
		}
		switch f.rule {
		case RuleDate:
			t, ok := v.(time.Time)
			if !ok {
				return invalidFormat(f.name, "could not convert date type of "+f.name)
			}
			payload[f.name] = t.Format(DateLayout)
		case RuleStrictTrueBool:
			b, ok := v.(bool)
			if !ok {
				return invalidFormat(f.name, "could not convert bool type of "+f.name)
			}
			if b {
				payload[f.name] = "True"
			} else {
				payload[f.name] = "False"
			}
		}
	}
	return nil
}

package providers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zclconf/go-cty/cty"

	"github.com/tusklang/tusk-go/internal/ctyutil"
)

// kindTags maps document validation kinds to validator tags.
var kindTags = map[string]string{
	"email":    "email",
	"url":      "url",
	"ip":       "ip",
	"uuid":     "uuid",
	"alphanum": "alphanum",
	"required": "required",
	"min":      "min",
	"max":      "max",
	"len":      "len",
	"oneof":    "oneof",
}

// PlaygroundValidator is the default Validator, built on
// go-playground/validator's Var API.
type PlaygroundValidator struct {
	v *validator.Validate
}

// NewPlaygroundValidator returns a ready validator.
func NewPlaygroundValidator() *PlaygroundValidator {
	return &PlaygroundValidator{v: validator.New()}
}

// Validate implements registry.Validator. The kind selects the primary tag;
// rules contribute tag parameters, so `@validate.min(n, {min: 3})` becomes
// the tag "min=3".
func (p *PlaygroundValidator) Validate(kind string, value cty.Value, rules map[string]cty.Value) (bool, error) {
	tag, ok := kindTags[kind]
	if !ok {
		return false, fmt.Errorf("unknown validation kind %q", kind)
	}

	if param, ok := rules[kind]; ok {
		tag = fmt.Sprintf("%s=%v", tag, ctyutil.ToGo(param))
	}
	extra := make([]string, 0, len(rules))
	for k, v := range rules {
		if k == kind {
			continue
		}
		if t, ok := kindTags[k]; ok {
			extra = append(extra, fmt.Sprintf("%s=%v", t, ctyutil.ToGo(v)))
		}
	}
	sort.Strings(extra)
	if len(extra) > 0 {
		tag = tag + "," + strings.Join(extra, ",")
	}

	if err := p.v.Var(ctyutil.ToGo(value), tag); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

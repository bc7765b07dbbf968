package filter

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrUnknownFilter is returned by ByName for names it does not know.
var ErrUnknownFilter = errors.New("filter: unknown filter")

type constructor struct {
	// param is the default parameter, used when hasParam is set.
	param    float32
	hasParam bool
	build    func(p float32) Filter
}

var constructors = map[string]constructor{
	"passthrough": {build: func(float32) Filter { return NewPassthrough() }},
	"grayscale":   {build: func(float32) Filter { return NewGrayscale() }},
	"sepia":       {build: func(float32) Filter { return NewSepia() }},
	"invert":      {build: func(float32) Filter { return NewInvert() }},
	"brightness":  {param: 1.2, hasParam: true, build: func(p float32) Filter { return NewBrightness(p) }},
	"contrast":    {param: 1.5, hasParam: true, build: func(p float32) Filter { return NewContrast(p) }},
	"saturation":  {param: 1.5, hasParam: true, build: func(p float32) Filter { return NewSaturation(p) }},
	"hue":         {param: 90, hasParam: true, build: func(p float32) Filter { return NewHueRotate(p) }},
	"opacity":     {param: 0.5, hasParam: true, build: func(p float32) Filter { return NewOpacity(p) }},
}

// Names returns the names accepted by ByName, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ByName builds a bundled filter from a name with an optional parameter,
// for example "sepia", "brightness=1.4" or "hue=45". The empty name and
// "none" select the passthrough filter.
func ByName(spec string) (Filter, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(spec), "=")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		name = "passthrough"
	}
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFilter, name, strings.Join(Names(), ", "))
	}

	p := c.param
	if hasArg {
		if !c.hasParam {
			return nil, fmt.Errorf("filter: %s takes no parameter", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(arg), 32)
		if err != nil {
			return nil, fmt.Errorf("filter: %s parameter: %w", name, err)
		}
		p = float32(v)
	}
	return c.build(p), nil
}

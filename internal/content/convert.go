package content

import (
	"fmt"
	"sync"

	"github.com/longbridgeapp/opencc"
)

// Chinese converter modes.
const (
	ConvertNone          = 0
	ConvertToSimplified  = 1
	ConvertToTraditional = 2
)

// ConversionError reports a failed simplified/traditional conversion. It is
// non-fatal: the text continues through the pipeline unconverted.
type ConversionError struct {
	Mode int
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("chinese conversion (mode %d) failed: %v", e.Mode, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

type converter struct {
	once sync.Once
	cc   *opencc.OpenCC
	err  error
}

var converters = map[int]*converter{
	ConvertToSimplified:  {},
	ConvertToTraditional: {},
}

var conversions = map[int]string{
	ConvertToSimplified:  "t2s",
	ConvertToTraditional: "s2t",
}

// convertChinese converts text according to mode. Unknown modes and
// ConvertNone return the text unchanged.
func convertChinese(mode int, text string) (string, error) {
	c, ok := converters[mode]
	if !ok {
		return text, nil
	}
	c.once.Do(func() {
		c.cc, c.err = opencc.New(conversions[mode])
	})
	if c.err != nil {
		return text, &ConversionError{Mode: mode, Err: c.err}
	}
	out, err := c.cc.Convert(text)
	if err != nil {
		return text, &ConversionError{Mode: mode, Err: err}
	}
	return out, nil
}

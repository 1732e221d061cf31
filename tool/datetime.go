package tool

import (
	"context"
	"fmt"
	"time"
)

// DatetimeOptions configures the builtin datetime tool.
type DatetimeOptions struct {
	// Now supplies the current time. Swap it out in tests.
	Now func() time.Time
}

// NewDatetimeTool returns the builtin "get_datetime_now" tool. It reports the
// current date and time in RFC 3339 format, optionally converted to an IANA
// timezone passed as the "timezone" argument.
func NewDatetimeTool(optFns ...func(o *DatetimeOptions)) *FunctionTool {
	opts := DatetimeOptions{
		Now: time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return NewFunctionTool(
		"get_datetime_now",
		"Get the current date and time. Accepts an optional IANA timezone name (e.g. Europe/Berlin).",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name. Defaults to the server timezone.",
				},
			},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			now := opts.Now()

			if tz, ok := args["timezone"].(string); ok && tz != "" {
				loc, err := time.LoadLocation(tz)
				if err != nil {
					return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
				}
				now = now.In(loc)
			}

			return now.Format(time.RFC3339), nil
		},
	)
}

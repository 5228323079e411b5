// Package attrs reads values back out of slog-style argument lists.
package attrs

import "log/slog"

// String returns the string value stored under key in args. args may mix
// alternating key/value pairs with slog.Attr values, as slog accepts.
// Later occurrences win; a missing key or non-string value yields "".
func String(args []any, key string) string {
	var out string
	for i := 0; i < len(args); i++ {
		switch k := args[i].(type) {
		case slog.Attr:
			if k.Key == key && k.Value.Kind() == slog.KindString {
				out = k.Value.String()
			}
		case string:
			if i+1 >= len(args) {
				return out
			}
			if v, ok := args[i+1].(string); ok && k == key {
				out = v
			}
			i++
		}
	}
	return out
}

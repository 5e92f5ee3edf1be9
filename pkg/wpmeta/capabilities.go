package wpmeta

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/phpserialize"
)

// ErrMalformedCapabilities is returned when a capabilities blob is not a serialized PHP array.
var ErrMalformedCapabilities = errors.New("malformed capabilities value")

// CapabilitiesKey returns the usermeta key holding role assignments for a table prefix.
func CapabilitiesKey(tablePrefix string) string {
	return tablePrefix + "capabilities"
}

// ParseCapabilities decodes the serialized role map stored in the capabilities usermeta
// row and returns the granted role names, lower-cased and sorted.
//
// The row is a PHP array keyed by role name whose values are booleans, integers,
// strings, floats or null. Roles mapped to a falsy value are not granted.
func ParseCapabilities(blob string) (roles []string, err error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return []string{}, nil
	}

	count, err := arrayLength(blob)
	if err != nil {
		return nil, err
	}

	// Host rows are untrusted; the decoder must never take a request down.
	defer func() {
		if r := recover(); r != nil {
			roles, err = nil, fmt.Errorf("%w: %v", ErrMalformedCapabilities, r)
		}
	}()

	decoded, err := phpserialize.UnmarshalAssociativeArray([]byte(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCapabilities, err)
	}
	if len(decoded) != count {
		return nil, fmt.Errorf("%w: declared %d entries, found %d", ErrMalformedCapabilities, count, len(decoded))
	}

	roles = make([]string, 0, len(decoded))
	for key, value := range decoded {
		granted, err := truthy(value)
		if err != nil {
			return nil, err
		}
		if !granted {
			continue
		}
		if role := strings.ToLower(strings.TrimSpace(fmt.Sprint(key))); role != "" {
			roles = append(roles, role)
		}
	}

	sort.Strings(roles)
	return roles, nil
}

// arrayLength validates the array envelope and returns the declared entry count.
// Every entry takes at least six bytes (`i:0;N;`), which bounds the count by the
// blob length.
func arrayLength(blob string) (int, error) {
	if !strings.HasPrefix(blob, "a:") || !strings.HasSuffix(blob, "}") {
		return 0, fmt.Errorf("%w: not a serialized array", ErrMalformedCapabilities)
	}
	end := strings.IndexByte(blob[2:], ':')
	if end < 0 {
		return 0, fmt.Errorf("%w: missing array length", ErrMalformedCapabilities)
	}
	count, err := strconv.Atoi(blob[2 : 2+end])
	if err != nil || count < 0 {
		return 0, fmt.Errorf("%w: invalid array length", ErrMalformedCapabilities)
	}
	if count > len(blob)/6 {
		return 0, fmt.Errorf("%w: array length %d exceeds input", ErrMalformedCapabilities, count)
	}
	return count, nil
}

func truthy(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		return v != "" && v != "0", nil
	default:
		return false, fmt.Errorf("%w: unsupported value type %T", ErrMalformedCapabilities, value)
	}
}

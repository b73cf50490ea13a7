package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Hash returns a deterministic 16 hex character digest of a configuration
// mapping. Values are normalized first:
//   - sets (maps with empty struct values) become sorted lists of their
//     members' string forms, so member order never matters;
//   - Path and fmt.Stringer values become their string form;
//   - lists keep their order;
//   - mapping keys are sorted.
func Hash(m map[string]any) (string, error) {
	norm, err := normalize(reflect.ValueOf(m))
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(norm)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}

var (
	stringerType    = reflect.TypeFor[fmt.Stringer]()
	emptyStructType = reflect.TypeFor[struct{}]()
)

func normalize(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Implements(stringerType) && v.Kind() == reflect.Pointer {
			return v.Interface().(fmt.Stringer).String(), nil
		}
		return normalize(v.Elem())
	}
	if v.Type().Implements(stringerType) {
		return v.Interface().(fmt.Stringer).String(), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, v.Len())
		for i := range v.Len() {
			item, err := normalize(v.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case reflect.Map:
		if v.Type().Elem() == emptyStructType {
			return setMembers(v)
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, err := keyString(iter.Key())
			if err != nil {
				return nil, err
			}
			item, err := normalize(iter.Value())
			if err != nil {
				return nil, err
			}
			out[key] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("config hash: unsupported value of type %s", v.Type())
	}
}

func setMembers(v reflect.Value) ([]any, error) {
	members := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		s, err := keyString(k)
		if err != nil {
			return nil, err
		}
		members = append(members, s)
	}
	sort.Strings(members)
	out := make([]any, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out, nil
}

func keyString(k reflect.Value) (string, error) {
	n, err := normalize(k)
	if err != nil {
		return "", err
	}
	switch s := n.(type) {
	case string:
		return s, nil
	default:
		return fmt.Sprint(s), nil
	}
}

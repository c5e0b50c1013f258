// flatten.go: Document normalization and key-path flattening
//
// Converts an arbitrary decoded document (maps, sequences, scalars) into the
// flat dotted-key namespace consumers read. Sequences are joined into a
// single comma-separated value at the owning key; downstream consumers
// depend on that exact joined format, so per-index keys are never invented.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agilira/go-errors"
)

// ContentKey is the synthetic key a non-map top-level document is stored
// under after normalization.
const ContentKey = "content"

// Normalize converts a decoded document into canonical nested-map form:
// string-keyed maps all the way down, sequences preserved in order, scalars
// untouched. A document that is not a map at the top level is wrapped under
// ContentKey rather than rejected. Normalize never fails; malformed input
// surfaces earlier as a parse error.
func Normalize(doc interface{}) map[string]interface{} {
	normalized := normalizeNode(doc)
	if m, ok := normalized.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{ContentKey: normalized}
}

// normalizeNode recurses over one node, dispatching on its variant.
// Decoders that produce interface-keyed maps get their keys stringified.
func normalizeNode(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		node := make(map[string]interface{}, len(v))
		for key, child := range v {
			node[key] = normalizeNode(child)
		}
		return node
	case map[interface{}]interface{}:
		node := make(map[string]interface{}, len(v))
		for key, child := range v {
			node[fmt.Sprint(key)] = normalizeNode(child)
		}
		return node
	case []interface{}:
		node := make([]interface{}, len(v))
		for i, element := range v {
			node[i] = normalizeNode(element)
		}
		return node
	default:
		return v
	}
}

// Flatten converts a canonical nested map into the flat dotted-key namespace:
//
//	{a: {b: 1, c: [x, y]}}  ->  {"a.b": "1", "a.c": "x,y"}
//
// Map values recurse with the parent key prefixed; sequence values collapse
// into one comma-joined string at the owning key, elements in order; scalars
// are stringified. A nil value anywhere is a contract violation and fails
// the whole pass with ErrCodeNullValue naming the key path; silently
// stringifying it would smuggle ambiguous empty values into consumers.
func Flatten(node map[string]interface{}) (map[string]string, error) {
	return flattenMap("", node)
}

func flattenMap(path string, node map[string]interface{}) (map[string]string, error) {
	result := make(map[string]string, len(node))
	for key, value := range node {
		keyPath := key
		if path != "" {
			keyPath = path + "." + key
		}

		switch v := value.(type) {
		case map[string]interface{}:
			child, err := flattenMap(keyPath, v)
			if err != nil {
				return nil, err
			}
			for childKey, childValue := range child {
				result[childKey] = childValue
			}
		case []interface{}:
			joined, err := joinSequence(path, key, v)
			if err != nil {
				return nil, err
			}
			result[keyPath] = joined
		case nil:
			return nil, errors.New(ErrCodeNullValue, "null value in configuration document").
				WithContext("key", keyPath)
		default:
			result[keyPath] = scalarString(v)
		}
	}
	return result, nil
}

// joinSequence flattens each element as a singleton map under the owning key
// and joins the results with commas, exactly one value per element, in
// element order. A map element flattens to several entries; only the value
// of its lexicographically first flattened key is kept and the remaining
// entries are discarded along with all sub-key paths. This collapse is
// lossy on purpose and must stay byte-for-byte stable.
func joinSequence(path, key string, sequence []interface{}) (string, error) {
	values := make([]string, 0, len(sequence))
	for _, element := range sequence {
		flattened, err := flattenMap(path, map[string]interface{}{key: element})
		if err != nil {
			return "", err
		}
		flatKeys := make([]string, 0, len(flattened))
		for k := range flattened {
			flatKeys = append(flatKeys, k)
		}
		sort.Strings(flatKeys)
		if len(flatKeys) == 0 {
			values = append(values, "")
			continue
		}
		values = append(values, flattened[flatKeys[0]])
	}
	return strings.Join(values, ","), nil
}

// scalarString renders a scalar leaf the way consumers expect: booleans as
// true/false, integers without decoration, floats with the fewest digits
// that round-trip ("1", not "1.000000").
func scalarString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// binder.go - Ultra-fast typed binding for flattened configuration
//
// This module implements a high-performance binding pattern that maps
// flattened configuration values onto Go variables without reflection.
// It follows the "bind pattern" approach for zero-allocation binding.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package hermes

import (
	"fmt"
	"strconv"
	"time"
	"unsafe"

	"github.com/agilira/go-errors"
)

// bindKind represents the type of binding for ultra-fast type switching
type bindKind uint8

const (
	bindString bindKind = iota
	bindInt
	bindInt64
	bindBool
	bindFloat64
	bindDuration
)

// binding represents a single configuration binding with minimal memory footprint
//
// ═══════════════════════════════════════════════════════════════════════════════
// ENGINEERING NOTE: Zero-Reflection Architecture
// ═══════════════════════════════════════════════════════════════════════════════
// Reflection-based binding (reflect.Value.Set) allocates per field and cannot
// be inlined. Here the target is an unsafe.Pointer paired with a compile-time
// type discriminator (bindKind); the public API stays 100% type-safe because
// users go through BindString(&myVar, "key") and friends, where the compiler
// checks the pointer type. Since source values are flattened strings, every
// conversion is a single strconv call on the Apply hot path.
//
// Security: #nosec G103 annotations are intentional. gosec flags all unsafe
// usage, but this usage is provably safe - only pointers created from valid
// Go variables in the Bind* methods are ever dereferenced.
// ═══════════════════════════════════════════════════════════════════════════════
type binding struct {
	target   unsafe.Pointer // Raw pointer to target variable
	key      string         // Flattened configuration key (e.g., "database.host")
	defValue string         // Default value as string (universal representation)
	hasDef   bool           // Whether a default was supplied
	kind     bindKind       // Type of binding for fast switching
}

// ConfigBinder provides ultra-fast typed binding over a flattened snapshot
// with a fluent API. Bind* calls collect intents; Apply executes them in a
// single sequential pass and stops at the first conversion failure.
type ConfigBinder struct {
	bindings []binding         // Pre-allocated slice of bindings
	values   map[string]string // Flattened configuration source
	err      error             // Accumulated error state
}

// NewConfigBinder creates a binder over a flattened key-value view.
func NewConfigBinder(values map[string]string) *ConfigBinder {
	return &ConfigBinder{
		bindings: make([]binding, 0, 16), // Pre-allocate for common case
		values:   values,
	}
}

// BindFromSnapshot creates a binder over a snapshot's values.
func BindFromSnapshot(snap *Snapshot) *ConfigBinder {
	if snap == nil {
		return NewConfigBinder(nil)
	}
	return NewConfigBinder(snap.Values)
}

// Bind returns a binder over the source's current snapshot.
//
// The binder captures the snapshot at call time; values published by later
// refresh cycles are not observed. Re-invoke Bind after a refresh to pick
// up new values.
func (s *Source) Bind() *ConfigBinder {
	return BindFromSnapshot(s.Snapshot())
}

// BindString binds a string configuration value with optional default
func (cb *ConfigBinder) BindString(target *string, key string, defaultValue ...string) *ConfigBinder {
	if cb.err != nil {
		return cb // Fast path: skip if already in error state
	}

	b := binding{
		target: unsafe.Pointer(target), // #nosec G103 - intentional unsafe.Pointer usage for zero-reflection binding
		key:    key,
		kind:   bindString,
	}
	if len(defaultValue) > 0 {
		b.defValue = defaultValue[0]
		b.hasDef = true
	}

	cb.bindings = append(cb.bindings, b)
	return cb
}

// BindInt binds an integer configuration value with optional default
func (cb *ConfigBinder) BindInt(target *int, key string, defaultValue ...int) *ConfigBinder {
	if cb.err != nil {
		return cb
	}

	b := binding{
		target: unsafe.Pointer(target), // #nosec G103 - intentional unsafe.Pointer usage for zero-reflection binding
		key:    key,
		kind:   bindInt,
	}
	if len(defaultValue) > 0 {
		b.defValue = strconv.Itoa(defaultValue[0])
		b.hasDef = true
	}

	cb.bindings = append(cb.bindings, b)
	return cb
}

// BindInt64 binds an int64 configuration value with optional default
func (cb *ConfigBinder) BindInt64(target *int64, key string, defaultValue ...int64) *ConfigBinder {
	if cb.err != nil {
		return cb
	}

	b := binding{
		target: unsafe.Pointer(target), // #nosec G103 - intentional unsafe.Pointer usage for zero-reflection binding
		key:    key,
		kind:   bindInt64,
	}
	if len(defaultValue) > 0 {
		b.defValue = strconv.FormatInt(defaultValue[0], 10)
		b.hasDef = true
	}

	cb.bindings = append(cb.bindings, b)
	return cb
}

// BindBool binds a boolean configuration value with optional default
func (cb *ConfigBinder) BindBool(target *bool, key string, defaultValue ...bool) *ConfigBinder {
	if cb.err != nil {
		return cb
	}

	b := binding{
		target: unsafe.Pointer(target), // #nosec G103 - intentional unsafe.Pointer usage for zero-reflection binding
		key:    key,
		kind:   bindBool,
	}
	if len(defaultValue) > 0 {
		b.defValue = strconv.FormatBool(defaultValue[0])
		b.hasDef = true
	}

	cb.bindings = append(cb.bindings, b)
	return cb
}

// BindFloat64 binds a float64 configuration value with optional default
func (cb *ConfigBinder) BindFloat64(target *float64, key string, defaultValue ...float64) *ConfigBinder {
	if cb.err != nil {
		return cb
	}

	b := binding{
		target: unsafe.Pointer(target), // #nosec G103 - intentional unsafe.Pointer usage for zero-reflection binding
		key:    key,
		kind:   bindFloat64,
	}
	if len(defaultValue) > 0 {
		b.defValue = strconv.FormatFloat(defaultValue[0], 'f', -1, 64)
		b.hasDef = true
	}

	cb.bindings = append(cb.bindings, b)
	return cb
}

// BindDuration binds a time.Duration configuration value with optional default
func (cb *ConfigBinder) BindDuration(target *time.Duration, key string, defaultValue ...time.Duration) *ConfigBinder {
	if cb.err != nil {
		return cb
	}

	b := binding{
		target: unsafe.Pointer(target), // #nosec G103 - intentional unsafe.Pointer usage for zero-reflection binding
		key:    key,
		kind:   bindDuration,
	}
	if len(defaultValue) > 0 {
		b.defValue = defaultValue[0].String()
		b.hasDef = true
	}

	cb.bindings = append(cb.bindings, b)
	return cb
}

// Apply executes all bindings in a single optimized pass.
//
// The Bind* methods only collect intents; Apply processes them sequentially
// from a contiguous slice. A binding for a key absent from the snapshot uses
// its default when one was supplied and is skipped otherwise, so targets keep
// their prior values. The first conversion failure aborts before any
// subsequent binding is applied.
func (cb *ConfigBinder) Apply() error {
	if cb.err != nil {
		return cb.err
	}

	// Single loop - maximum performance
	for _, b := range cb.bindings {
		if err := cb.applyBinding(b); err != nil {
			return errors.Wrap(err, ErrCodeBindFailed, "failed to bind key '"+b.key+"'")
		}
	}

	return nil
}

// applyBinding applies a single binding with zero-allocation type switching
func (cb *ConfigBinder) applyBinding(b binding) error {
	value, exists := cb.values[b.key]
	if !exists {
		if !b.hasDef {
			// No value and no default: leave the target untouched
			return nil
		}
		value = b.defValue
	}

	// Ultra-fast type switching without reflection
	switch b.kind {
	case bindString:
		*(*string)(b.target) = value
	case bindInt:
		val, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*(*int)(b.target) = val
	case bindInt64:
		val, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		*(*int64)(b.target) = val
	case bindBool:
		val, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*(*bool)(b.target) = val
	case bindFloat64:
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		*(*float64)(b.target) = val
	case bindDuration:
		val, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*(*time.Duration)(b.target) = val
	default:
		return errors.New(ErrCodeBindFailed, fmt.Sprintf("unsupported binding kind: %d", b.kind))
	}

	return nil
}

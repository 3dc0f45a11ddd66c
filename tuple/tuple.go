// Package tuple defines the typed values stored as table rows and their
// binary encoding.
//
// A Tuple is an ordered list of Values. A Schema lists the column Types a
// table accepts; FromStringsWithSchema turns user input into a Tuple that
// matches it. Tuples are encoded with Marshal into the payload bytes that the
// table layer hands to the page allocator.
package tuple

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tag identifies a value variant. The numbering is part of the wire format.
type Tag uint32

const (
	TagUint32  Tag = 0
	TagInt32   Tag = 1
	TagFloat32 Tag = 2
	TagFloat64 Tag = 3
	TagVarChar Tag = 4
	TagNull    Tag = 5
)

func (t Tag) String() string {
	switch t {
	case TagUint32:
		return "uint"
	case TagInt32:
		return "int"
	case TagFloat32:
		return "float"
	case TagFloat64:
		return "double"
	case TagVarChar:
		return "varchar"
	case TagNull:
		return "null"
	default:
		return fmt.Sprintf("tag(%d)", uint32(t))
	}
}

// NullLiteral is the text form of a Null value.
const NullLiteral = "NULL"

var (
	// ErrConvert indicates a string that cannot be parsed as the column type.
	ErrConvert = errors.New("tuple: conversion failed")

	// ErrArity indicates a value count that does not match the schema.
	ErrArity = errors.New("tuple: wrong number of values")

	// ErrSchema indicates an unknown or empty column type list.
	ErrSchema = errors.New("tuple: invalid schema")

	// ErrType indicates a value whose type does not match its column.
	ErrType = errors.New("tuple: type mismatch")
)

// Value is one field of a tuple. The concrete types are Uint32, Int32,
// Float32, Float64, VarChar and Null.
type Value interface {
	Tag() Tag
	String() string
}

type (
	Uint32  uint32
	Int32   int32
	Float32 float32
	Float64 float64
	VarChar string
	Null    struct{}
)

func (Uint32) Tag() Tag  { return TagUint32 }
func (Int32) Tag() Tag   { return TagInt32 }
func (Float32) Tag() Tag { return TagFloat32 }
func (Float64) Tag() Tag { return TagFloat64 }
func (VarChar) Tag() Tag { return TagVarChar }
func (Null) Tag() Tag    { return TagNull }

func (v Uint32) String() string  { return strconv.FormatUint(uint64(v), 10) }
func (v Int32) String() string   { return strconv.FormatInt(int64(v), 10) }
func (v Float32) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func (v Float64) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v VarChar) String() string { return string(v) }
func (Null) String() string      { return NullLiteral }

// Tuple is an ordered list of values.
type Tuple []Value

// Strings renders every value as text, with NULL for null values.
func (t Tuple) Strings() []string {
	out := make([]string, len(t))
	for i, v := range t {
		out[i] = v.String()
	}
	return out
}

// FromStrings builds an untyped tuple: every string becomes a VarChar.
func FromStrings(strs []string) Tuple {
	t := make(Tuple, len(strs))
	for i, s := range strs {
		t[i] = VarChar(norm.NFC.String(s))
	}
	return t
}

// Schema is the list of column types of a table.
type Schema []Tag

// ParseSchema maps type names (uint, int, float, double, varchar) to a schema.
func ParseSchema(tokens []string) (Schema, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no column types provided", ErrSchema)
	}
	schema := make(Schema, 0, len(tokens))
	for _, tok := range tokens {
		var tag Tag
		switch strings.ToLower(tok) {
		case "uint":
			tag = TagUint32
		case "int":
			tag = TagInt32
		case "float":
			tag = TagFloat32
		case "double":
			tag = TagFloat64
		case "varchar":
			tag = TagVarChar
		default:
			return nil, fmt.Errorf("%w: unrecognised type %q, expected [uint|int|float|double|varchar]", ErrSchema, tok)
		}
		schema = append(schema, tag)
	}
	return schema, nil
}

func (s Schema) String() string {
	names := make([]string, len(s))
	for i, tag := range s {
		names[i] = tag.String()
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// Check reports whether t fits the schema. Null fits any column.
func (s Schema) Check(t Tuple) error {
	if len(t) != len(s) {
		return fmt.Errorf("%w: got %d, want %d", ErrArity, len(t), len(s))
	}
	for i, v := range t {
		if v.Tag() != TagNull && v.Tag() != s[i] {
			return fmt.Errorf("%w: column %d is %s, got %s", ErrType, i, s[i], v.Tag())
		}
	}
	return nil
}

// FromStringsWithSchema parses one string per column. The literal NULL yields
// Null in any column; varchar text is NFC-normalized.
func FromStringsWithSchema(strs []string, schema Schema) (Tuple, error) {
	if len(strs) != len(schema) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrArity, len(strs), len(schema))
	}
	t := make(Tuple, len(strs))
	for i, s := range strs {
		v, err := parseValue(s, schema[i])
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		t[i] = v
	}
	return t, nil
}

func parseValue(s string, tag Tag) (Value, error) {
	if s == NullLiteral {
		return Null{}, nil
	}
	switch tag {
	case TagUint32:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q to uint: %w", ErrConvert, s, err)
		}
		return Uint32(n), nil
	case TagInt32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q to int: %w", ErrConvert, s, err)
		}
		return Int32(n), nil
	case TagFloat32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q to float: %w", ErrConvert, s, err)
		}
		return Float32(f), nil
	case TagFloat64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q to double: %w", ErrConvert, s, err)
		}
		return Float64(f), nil
	case TagVarChar:
		return VarChar(norm.NFC.String(s)), nil
	default:
		return nil, fmt.Errorf("%w: column type %s", ErrSchema, tag)
	}
}

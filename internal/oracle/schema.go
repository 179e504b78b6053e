package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"deepfund/internal/pkg/jsonutil"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

var errNoObject = errors.New("no json object in reply")

// Schema 描述一种结构化输出：JSON Schema 做结构校验，Decode 做语义解析，
// Default 是重试耗尽后的安全值。
type Schema[T any] struct {
	Name    string
	Default func() T
	Decode  func(doc gjson.Result) (T, error)

	// numeric 中的字段若被模型写成字符串数字，会在校验前转为 number。
	numeric    []string
	definition string
	compiled   *jsonschema.Schema
}

// NewSchema compiles definition and returns a schema ready for Parse.
func NewSchema[T any](name, definition string, numeric []string, def func() T, decode func(gjson.Result) (T, error)) (*Schema[T], error) {
	compiler := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, strings.NewReader(definition)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return &Schema[T]{Name: name, Default: def, Decode: decode, numeric: numeric, definition: definition, compiled: compiled}, nil
}

func mustSchema[T any](name, definition string, numeric []string, def func() T, decode func(gjson.Result) (T, error)) *Schema[T] {
	s, err := NewSchema(name, definition, numeric, def, decode)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse extracts the first JSON object from raw, validates it and decodes it.
func (s *Schema[T]) Parse(raw string) (T, error) {
	var zero T
	obj, ok := jsonutil.ExtractObject(raw)
	if !ok || !gjson.Valid(obj) {
		return zero, errNoObject
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return zero, err
	}
	for _, key := range s.numeric {
		doc[key] = coerceNumber(doc[key])
	}
	if s.compiled != nil {
		if err := s.compiled.Validate(doc); err != nil {
			return zero, fmt.Errorf("schema %s: %w", s.Name, err)
		}
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return zero, err
	}
	return s.Decode(gjson.ParseBytes(normalized))
}

// coerceNumber 兼容模型把 60 写成 "60" 的情况。
func coerceNumber(v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return v
	}
	return f
}

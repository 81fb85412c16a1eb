package analysis

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseResult decodes the extracted text. Any JSON object is accepted; keys the model
// dropped stay empty. Use ParseStrict to reject such answers.
func ParseResult(s string) (Result, error) {
	fields, err := decodeObject(s)
	if err != nil {
		return Result{}, err
	}
	return resultFromFields(fields), nil
}

// ParseStrict is ParseResult plus a schema check: all three keys must be non-empty strings.
func ParseStrict(s string) (Result, error) {
	fields, err := decodeObject(s)
	if err != nil {
		return Result{}, err
	}
	if err := checkFields(fields); err != nil {
		err.Raw = s
		return Result{}, err
	}
	res := resultFromFields(fields)
	if err := ValidateResult(res); err != nil {
		var se *SchemaValidationError
		if errors.As(err, &se) {
			se.Raw = s
		}
		return Result{}, err
	}
	return res, nil
}

// ValidateResult reports empty fields as a SchemaValidationError.
func ValidateResult(r Result) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	se := &SchemaValidationError{}
	for _, fe := range ves {
		se.Missing = append(se.Missing, jsonKey(fe.StructField()))
	}
	return se
}

func decodeObject(s string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, &ResponseFormatError{Raw: s, Err: err}
	}
	// "null" декодируется без ошибки, но объектом не является
	if fields == nil {
		return nil, &ResponseFormatError{Raw: s, Err: errors.New("expected JSON object, got null")}
	}
	return fields, nil
}

func checkFields(fields map[string]any) *SchemaValidationError {
	se := &SchemaValidationError{}
	for _, k := range resultKeys {
		v, ok := fields[k]
		if !ok {
			se.Missing = append(se.Missing, k)
			continue
		}
		if _, ok := v.(string); !ok {
			se.Invalid = append(se.Invalid, k)
		}
	}
	if len(se.Missing) == 0 && len(se.Invalid) == 0 {
		return nil
	}
	sort.Strings(se.Missing)
	sort.Strings(se.Invalid)
	return se
}

func resultFromFields(fields map[string]any) Result {
	str := func(k string) string {
		s, _ := fields[k].(string)
		return s
	}
	return Result{
		TimeComplexity:  str(KeyTimeComplexity),
		SpaceComplexity: str(KeySpaceComplexity),
		Explanation:     str(KeyExplanation),
	}
}

func jsonKey(structField string) string {
	switch structField {
	case "TimeComplexity":
		return KeyTimeComplexity
	case "SpaceComplexity":
		return KeySpaceComplexity
	case "Explanation":
		return KeyExplanation
	}
	return structField
}

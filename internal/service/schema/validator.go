// Package schema checks raw alert payloads against the TradingView alert
// layout before anything else looks at them.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"regexp"
	"strings"

	"HyperTrade/internal/domain/models"
	"HyperTrade/pkg/util"

	"github.com/go-playground/validator/v10"
)

// Sections every alert must carry, in reporting order.
var Sections = []string{"general", "symbol_data", "currency", "position", "order", "market"}

var leverageHint = regexp.MustCompile(`^[1-9]\d*[xX]?$`)

// Validator is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		return util.IsDecimalLiteral(fl.Field().String())
	})
	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		return util.IsISO8601(fl.Field().String())
	})
	_ = v.RegisterValidation("leverage", func(fl validator.FieldLevel) bool {
		return leverageHint.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Validate checks raw and returns the decoded alert. Any violation is a
// *models.RelayError of kind SchemaError naming the offending path.
func (s *Validator) Validate(raw []byte) (*models.TradingViewAlert, error) {
	top, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	for _, name := range Sections {
		section, ok := top[name]
		if !ok {
			return nil, models.SchemaError(name, "is required")
		}
		if !isObject(section) {
			return nil, models.SchemaError(name, "must be an object")
		}
	}

	var alert models.TradingViewAlert
	if err := json.Unmarshal(raw, &alert); err != nil {
		return nil, typeError(err)
	}

	if err := s.validate.Struct(&alert); err != nil {
		return nil, fieldError(err)
	}
	return &alert, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return nil, models.SchemaError("$", "payload must be a JSON object")
		}
		return nil, &models.RelayError{Kind: models.KindSchema, Code: models.CodeInvalidJSON, Field: "$", Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &models.RelayError{Kind: models.KindSchema, Code: models.CodeInvalidJSON, Field: "$", Reason: "trailing data after JSON object"}
	}
	if top == nil {
		return nil, models.SchemaError("$", "payload must be a JSON object")
	}
	return top, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func typeError(err error) error {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		path := ute.Field
		if path == "" {
			path = "$"
		}
		reason := "has the wrong type"
		if ute.Type != nil && ute.Type.Kind() == reflect.String {
			reason = "must be a string"
		}
		return models.SchemaError(path, reason)
	}
	return &models.RelayError{Kind: models.KindSchema, Code: models.CodeInvalidJSON, Field: "$", Reason: "invalid JSON", Err: err}
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.SchemaError("$", err.Error())
	}

	fe := verrs[0]
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	return models.SchemaError(path, reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "decimal":
		return "must be a decimal string"
	case "iso8601":
		return "must be an ISO-8601 date-time"
	case "leverage":
		return "must be a positive integer optionally followed by X"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "failed validation: " + fe.Tag()
}

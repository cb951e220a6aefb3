package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds and validates a JSON body, answering 400 with per-field
// issues on failure. Returns false when the request has been answered.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondValidationFailed(ctx, issuesFromBindError(err, out))

		return false
	}

	return true
}

// BindQuery is the query-string counterpart for list filters.
func BindQuery(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindQuery(out); err != nil {
		RespondValidationFailed(ctx, issuesFromBindError(err, out))

		return false
	}

	return true
}

func issuesFromBindError(err error, out interface{}) []Issue {
	rootType := baseStructType(out)

	// validator errors (struct binding tags)
	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		issues := make([]Issue, 0, len(validatorError))

		for _, fieldError := range validatorError {
			issues = append(issues, Issue{
				Path:    fieldPathFromValidatorError(rootType, fieldError),
				Message: validationMessage(fieldError.Tag(), fieldError.Param()),
			})
		}

		return issues
	}

	// bad json
	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return []Issue{{Path: "", Message: "invalid JSON syntax"}}
	}

	// type mismatch
	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		path := fieldPathFromDotPath(rootType, unmatchedTypeError.Field)

		if path == "" {
			path = strings.TrimSpace(unmatchedTypeError.Field)
		}

		return []Issue{{
			Path:    path,
			Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
		}}
	}

	// final fallback if the error could not be deciphered
	return []Issue{{Path: "", Message: err.Error()}}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func fieldPathFromValidatorError(rootType reflect.Type, fieldError validator.FieldError) string {
	// Namespace format is usually "<StructName>.<Field>[.<NestedField>...]".
	namespace := fieldError.StructNamespace()
	if namespace == "" {
		namespace = fieldError.Namespace()
	}

	if namespace == "" {
		return fieldError.Field()
	}

	parts := strings.Split(namespace, ".")
	if len(parts) == 0 {
		return fieldError.Field()
	}

	if rootType != nil && rootType.Name() != "" && parts[0] == rootType.Name() {
		parts = parts[1:]
	}

	path := mapStructPathToWirePath(rootType, parts)
	if path != "" {
		return path
	}

	return fieldError.Field()
}

func fieldPathFromDotPath(rootType reflect.Type, dotPath string) string {
	dotPath = strings.TrimSpace(dotPath)
	if dotPath == "" {
		return ""
	}

	return mapStructPathToWirePath(rootType, strings.Split(dotPath, "."))
}

// mapStructPathToWirePath rewrites Go field names into the names clients sent,
// preferring the json tag and falling back to the form tag (query binding).
func mapStructPathToWirePath(rootType reflect.Type, parts []string) string {
	if len(parts) == 0 {
		return ""
	}

	current := rootType
	out := make([]string, 0, len(parts))

	for _, rawPart := range parts {
		if rawPart == "" {
			continue
		}

		fieldName, indexSuffix := splitFieldIndex(rawPart)
		wireName := fieldName

		nextType := reflect.Type(nil)
		if current != nil {
			for current.Kind() == reflect.Pointer {
				current = current.Elem()
			}

			if current.Kind() == reflect.Struct {
				if sf, ok := current.FieldByName(fieldName); ok {
					wireName = wireNameFromStructField(sf)
					nextType = sf.Type
				}
			}
		}

		out = append(out, wireName+indexSuffix)

		if nextType != nil {
			current = unwindCollection(nextType)
		} else {
			current = nil
		}
	}

	return strings.Join(out, ".")
}

func splitFieldIndex(part string) (string, string) {
	idx := strings.Index(part, "[")
	if idx == -1 {
		return part, ""
	}

	return part[:idx], part[idx:]
}

func wireNameFromStructField(sf reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		tag := sf.Tag.Get(key)
		if tag == "" {
			continue
		}

		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}

	return sf.Name
}

func unwindCollection(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}

	return nil
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}

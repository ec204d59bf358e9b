package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/geocoder89/gymlog/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// BindJSON decodes the request body into out. Field rules are checked by the services,
// so only malformed or mistyped JSON is rejected here.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindWith(out, jsonDecodeOnly{})

	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", decodeErrorDetails(err))

		return false
	}

	return true
}

// jsonDecodeOnly is binding.JSON without the struct validator run.
type jsonDecodeOnly struct{}

func (jsonDecodeOnly) Name() string { return "json-decode" }

func (jsonDecodeOnly) Bind(req *http.Request, obj any) error {
	if req == nil || req.Body == nil {
		return io.EOF
	}

	dec := json.NewDecoder(req.Body)
	if binding.EnableDecoderDisallowUnknownFields {
		dec.DisallowUnknownFields()
	}

	return dec.Decode(obj)
}

// RespondValidation renders a *validation.ValidationError as a 400.
func RespondValidation(ctx *gin.Context, err *validation.ValidationError) {
	RespondBadRequest(ctx, "Invalid data", gin.H{"fields": err.Fields})
}

func decodeErrorDetails(err error) interface{} {
	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	var maxBytesError *http.MaxBytesError
	if errors.As(err, &maxBytesError) {
		return gin.H{"json": "body_too_large", "limit": maxBytesError.Limit}
	}

	var syntaxError *json.SyntaxError
	if errors.As(err, &syntaxError) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeError *json.UnmarshalTypeError
	if errors.As(err, &typeError) {
		field := strings.TrimSpace(typeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []validation.FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", jsonTypeName(typeError.Type.String())),
				},
			},
		}
	}

	// final fallback if the error could not be deciphered
	return gin.H{"reason": err.Error()}
}

func jsonTypeName(goType string) string {
	switch strings.TrimPrefix(goType, "*") {
	case "int", "int32", "int64":
		return "integer"
	case "string":
		return "string"
	default:
		return goType
	}
}

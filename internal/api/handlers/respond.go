package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

// errorResponse writes err using the metadata of its code. Untyped errors are
// reported as INTERNAL_ERROR without leaking their text.
func errorResponse(c *gin.Context, err error) {
	typed := pkgerrors.As(err)
	code := pkgerrors.CodeInternal
	if typed != nil {
		code = typed.Code()
	}
	meta := pkgerrors.MetadataFor(code)

	if meta.HTTPStatus >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", string(code)).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	body := gin.H{"error": meta.PublicMessage, "code": code}
	if typed != nil && code != pkgerrors.CodeInternal {
		body["error"] = typed.Message()
		if meta.DetailsAllowed && typed.Details() != nil {
			body["details"] = typed.Details()
		}
	}
	c.AbortWithStatusJSON(meta.HTTPStatus, body)
}

// bindJSON decodes the body into dst. An empty body is accepted when optional.
func bindJSON(c *gin.Context, dst any, optional bool) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}

	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	} else {
		details["body"] = err.Error()
	}
	errorResponse(c, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").WithDetails(details))
	return false
}

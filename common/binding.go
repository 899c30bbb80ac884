package common

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var errBodyNotFound = errors.New("body not found")

// BindStrictJSON decodes the request body into obj rejecting unknown fields, then validates obj.
func BindStrictJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil {
		return errBodyNotFound
	}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return errBodyNotFound
		}
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after body")
	}
	return binding.Validator.ValidateStruct(obj)
}

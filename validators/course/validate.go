package courseValidator

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"lms/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors turns validator output into the field -> message map the
// response helpers send back.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["body"] = "Invalid request body!"
		return out
	}
	for _, fe := range ve {
		out[fieldPath(fe)] = fieldMessage(fe)
	}
	return out
}

// fieldPath drops the root struct name from the namespace, keeping the json path.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required!", name)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s!", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s!", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s!", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long!", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters!", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s!", name, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL!", name)
	default:
		return fmt.Sprintf("%s is invalid!", name)
	}
}

// check runs struct validation and merges extra (hand-written) errors.
// An empty map means the request is valid.
func check(req interface{}, extra map[string]string) map[string]string {
	errs := map[string]string{}
	if err := validate.Struct(req); err != nil {
		errs = fieldErrors(err)
	}
	for k, v := range extra {
		if _, ok := errs[k]; !ok {
			errs[k] = v
		}
	}
	return errs
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Params(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidBody(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
}

func invalidParam(c *fiber.Ctx, label string) error {
	return middleware.JsonResponse(c, fiber.StatusBadRequest, false, fmt.Sprintf("Invalid %s!", label), nil)
}

// exactlyOne reports the error for a content_id / prerequisite_id pair.
func exactlyOne(contentID, prerequisiteID *uint) map[string]string {
	switch {
	case contentID == nil && prerequisiteID == nil:
		return map[string]string{"content_id": "content_id or prerequisite_id is required!"}
	case contentID != nil && prerequisiteID != nil:
		return map[string]string{"content_id": "Send either content_id or prerequisite_id, not both!"}
	}
	return nil
}

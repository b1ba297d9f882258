// ABOUTME: Explicit request parsing and validation for API handlers
// ABOUTME: Reads query, form, or JSON bodies into typed requests checked by go-playground/validator

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// requestError is a client mistake reported as a 400 with its message as detail
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

var requestValidate = newValidator()

// newValidator reports fields by their wire name instead of the Go field name
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct validation and converts the first failure to a requestError
func validateRequest(req any) error {
	err := requestValidate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating request: %w", err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return badRequest("%s is required", fe.Field())
	case "max":
		return badRequest("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return badRequest("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return badRequest("%s is invalid", fe.Field())
	}
}

// readValues collects request parameters. The query string is always read;
// a JSON object body or a urlencoded/multipart form is merged on top of it.
func readValues(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		values := r.URL.Query()
		if err := mergeJSON(values, r.Body); err != nil {
			return nil, err
		}
		return values, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, badRequest("invalid form body")
		}
		return r.Form, nil

	default:
		if err := r.ParseForm(); err != nil {
			return nil, badRequest("invalid form body")
		}
		return r.Form, nil
	}
}

// mergeJSON decodes a flat JSON object and stores its scalar members in values
func mergeJSON(values url.Values, body io.Reader) error {
	if body == nil {
		return nil
	}

	dec := json.NewDecoder(body)
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest("invalid JSON body")
	}

	for key, raw := range obj {
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			values.Set(key, v)
		case json.Number:
			values.Set(key, v.String())
		case bool:
			values.Set(key, strconv.FormatBool(v))
		default:
			return badRequest("%s must be a string, number or boolean", key)
		}
	}
	return nil
}

// parseInt reads an optional integer parameter. Absent yields nil.
func parseInt(values url.Values, key string) (*int64, error) {
	if !values.Has(key) {
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(values.Get(key)), 10, 64)
	if err != nil {
		return nil, badRequest("%s must be an integer", key)
	}
	return &n, nil
}

// parseBool reads an optional boolean parameter. Absent yields false.
func parseBool(values url.Values, key string) (bool, error) {
	if !values.Has(key) {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(values.Get(key))) {
	case "1", "t", "true", "on", "yes", "y":
		return true, nil
	case "0", "f", "false", "off", "no", "n", "":
		return false, nil
	default:
		return false, badRequest("%s must be a boolean", key)
	}
}

// credentialsRequest is the body of signup and authenticate.
// The password policy is enforced by the authority, not here.
type credentialsRequest struct {
	Username string `form:"username" validate:"required,max=255"`
	Password string `form:"password"`
}

func parseCredentials(values url.Values) *credentialsRequest {
	return &credentialsRequest{
		Username: values.Get("username"),
		Password: values.Get("password"),
	}
}

func (r *credentialsRequest) Validate() error { return validateRequest(r) }

// messageRequest is the body of POST /api/message
type messageRequest struct {
	ThreadID *int64 `form:"thread_id" validate:"required,gte=0"`
	Message  string `form:"message" validate:"required,max=65536"`
}

func parseMessage(values url.Values) (*messageRequest, error) {
	threadID, err := parseInt(values, "thread_id")
	if err != nil {
		return nil, err
	}
	req := &messageRequest{ThreadID: threadID, Message: values.Get("message")}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// topicRequest is the body of POST /api/topic
type topicRequest struct {
	ParentID *int64 `form:"parent_id" validate:"required,gte=0"`
	Title    string `form:"title" validate:"required,max=255"`
}

func parseTopic(values url.Values) (*topicRequest, error) {
	parentID, err := parseInt(values, "parent_id")
	if err != nil {
		return nil, err
	}
	req := &topicRequest{ParentID: parentID, Title: strings.TrimSpace(values.Get("title"))}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// threadRequest is the body of POST /api/thread
type threadRequest struct {
	ParentID *int64 `form:"parent_id" validate:"required,gte=0"`
	Title    string `form:"title" validate:"required,max=255"`
	IsVegan  bool   `form:"is_vegan"`
}

func parseThread(values url.Values) (*threadRequest, error) {
	parentID, err := parseInt(values, "parent_id")
	if err != nil {
		return nil, err
	}
	isVegan, err := parseBool(values, "is_vegan")
	if err != nil {
		return nil, err
	}
	req := &threadRequest{
		ParentID: parentID,
		Title:    strings.TrimSpace(values.Get("title")),
		IsVegan:  isVegan,
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

type postRef struct {
	PostID *int64 `form:"post_id" validate:"required"`
}

func parsePostRef(values url.Values) (*postRef, error) {
	id, err := parseInt(values, "post_id")
	if err != nil {
		return nil, err
	}
	req := &postRef{PostID: id}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

type topicRef struct {
	TopicID *int64 `form:"topic_id" validate:"required"`
}

func parseTopicRef(values url.Values) (*topicRef, error) {
	id, err := parseInt(values, "topic_id")
	if err != nil {
		return nil, err
	}
	req := &topicRef{TopicID: id}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

type threadRef struct {
	ThreadID *int64 `form:"thread_id" validate:"required"`
}

func parseThreadRef(values url.Values) (*threadRef, error) {
	id, err := parseInt(values, "thread_id")
	if err != nil {
		return nil, err
	}
	req := &threadRef{ThreadID: id}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/communityhub/platform/config"
	"github.com/communityhub/platform/logger"
)

// IAPIError defines the interface for API errors with structured information.
type IAPIError interface {
	ErrorCode() string
	Message() string
	HTTPStatus() int
	Details() map[string]any
}

// APIResponse represents the standardized API response format.
type APIResponse struct {
	Data  any               `json:"data,omitempty"`
	Error *APIErrorResponse `json:"error,omitempty"`
	Meta  map[string]any    `json:"meta"`
}

// APIErrorResponse represents the error portion of an API response.
type APIErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// HandlerFunc is a typed handler: it receives the bound and validated request and
// returns the response payload or an API error.
type HandlerFunc[T any, R any] func(request T, ctx HandlerContext) (R, IAPIError)

// HandlerContext gives handlers access to the Echo context and the request-scoped logger.
type HandlerContext struct {
	Echo   echo.Context
	Logger logger.Logger
}

// WrapHandler adapts a typed handler to Echo. It binds path, query, header and JSON body
// fields, validates the request and formats the response envelope.
func WrapHandler[T any, R any](handlerFunc HandlerFunc[T, R], cfg *config.Config, log logger.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var request T

		if err := bindRequest(c, &request); err != nil {
			return formatErrorResponse(c, NewBadRequestError("Invalid request data").WithDetails("error", err.Error()), cfg)
		}

		if err := c.Validate(&request); err != nil {
			vErr := NewBadRequestError("Request validation failed")
			var ve *ValidationError
			if errors.As(err, &ve) {
				_ = vErr.WithDetails("validationErrors", ve.Errors)
			} else {
				_ = vErr.WithDetails("error", err.Error())
			}
			return formatErrorResponse(c, vErr, cfg)
		}

		response, apiErr := handlerFunc(request, HandlerContext{
			Echo:   c,
			Logger: log.WithContext(c.Request().Context()),
		})
		if apiErr != nil {
			return formatErrorResponse(c, apiErr, cfg)
		}

		if rl, ok := any(response).(ResultLike); ok {
			status, headers, data := rl.ResultMeta()
			return formatSuccessResponseWithStatus(c, data, status, headers)
		}
		return formatSuccessResponseWithStatus(c, response, http.StatusOK, nil)
	}
}

// bindRequest binds the JSON body and then fields tagged param, query or header.
func bindRequest(c echo.Context, target any) error {
	if ct := c.Request().Header.Get(echo.HeaderContentType); ct != "" && c.Request().ContentLength != 0 {
		if mt, _, _ := mime.ParseMediaType(ct); mt == echo.MIMEApplicationJSON || strings.HasSuffix(mt, "+json") {
			if err := (&echo.DefaultBinder{}).BindBody(c, target); err != nil {
				return fmt.Errorf("failed to bind JSON body: %w", err)
			}
		}
	}

	targetValue := reflect.ValueOf(target).Elem()
	targetType := targetValue.Type()
	if targetType.Kind() != reflect.Struct {
		return nil
	}

	for i := range targetType.NumField() {
		field := targetType.Field(i)
		fieldValue := targetValue.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if name := field.Tag.Get("param"); name != "" {
			if value := c.Param(name); value != "" {
				if err := setFieldValue(fieldValue, value); err != nil {
					return fmt.Errorf("failed to set path param %s: %w", name, err)
				}
			}
		}

		if name := field.Tag.Get("query"); name != "" {
			if err := bindQuery(c, fieldValue, name); err != nil {
				return err
			}
		}

		if name := field.Tag.Get("header"); name != "" {
			if value := c.Request().Header.Get(name); value != "" {
				if err := setFieldValue(fieldValue, value); err != nil {
					return fmt.Errorf("failed to set header %s: %w", name, err)
				}
			}
		}
	}
	return nil
}

// bindQuery supports repeated parameters for []string fields.
func bindQuery(c echo.Context, fieldValue reflect.Value, name string) error {
	if fieldValue.Kind() == reflect.Slice && fieldValue.Type().Elem().Kind() == reflect.String {
		values := c.QueryParams()[name]
		if len(values) > 0 {
			slice := reflect.MakeSlice(fieldValue.Type(), len(values), len(values))
			for i, v := range values {
				slice.Index(i).SetString(v)
			}
			fieldValue.Set(slice)
		}
		return nil
	}

	if value := c.QueryParam(name); value != "" {
		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set query param %s: %w", name, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(fieldValue reflect.Value, value string) error {
	if fieldValue.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		fieldValue.SetInt(int64(d))
		return nil
	}

	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, fieldValue.Type().Bits())
		if err != nil {
			return err
		}
		fieldValue.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, fieldValue.Type().Bits())
		if err != nil {
			return err
		}
		fieldValue.SetUint(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		fieldValue.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", fieldValue.Type())
	}
	return nil
}

func responseMeta(c echo.Context) map[string]any {
	return map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"requestId": getRequestID(c),
	}
}

// formatSuccessResponseWithStatus writes the success envelope with a custom status and headers.
func formatSuccessResponseWithStatus(c echo.Context, data any, status int, headers http.Header) error {
	if status == 0 {
		status = http.StatusOK
	}
	for k, vals := range headers {
		for _, v := range vals {
			c.Response().Header().Add(k, v)
		}
	}
	if status == http.StatusNoContent {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(status, APIResponse{Data: data, Meta: responseMeta(c)})
}

// formatErrorResponse writes the error envelope. Details are only exposed in development.
func formatErrorResponse(c echo.Context, apiErr IAPIError, cfg *config.Config) error {
	errorResp := &APIErrorResponse{
		Code:    apiErr.ErrorCode(),
		Message: apiErr.Message(),
	}
	if isDevelopmentEnv(cfg.App.Env) {
		if details := apiErr.Details(); len(details) > 0 {
			errorResp.Details = details
		}
	}
	return c.JSON(apiErr.HTTPStatus(), APIResponse{Error: errorResp, Meta: responseMeta(c)})
}

// getRequestID returns the request ID set by the RequestID middleware or the caller,
// generating one when neither is present.
func getRequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	id := uuid.New().String()
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}

// RouteRegistrar is satisfied by both *echo.Echo and *echo.Group.
type RouteRegistrar interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
}

// HandlerRegistry carries what typed handlers need at registration time.
type HandlerRegistry struct {
	cfg *config.Config
	log logger.Logger
}

// NewHandlerRegistry creates a handler registry.
func NewHandlerRegistry(cfg *config.Config, log logger.Logger) *HandlerRegistry {
	return &HandlerRegistry{cfg: cfg, log: log}
}

// RegisterHandler registers a typed handler under method and path.
func RegisterHandler[T any, R any](hr *HandlerRegistry, r RouteRegistrar, method, path string, handler HandlerFunc[T, R]) {
	r.Add(method, path, WrapHandler(handler, hr.cfg, hr.log))
}

// GET registers a GET handler.
func GET[T any, R any](hr *HandlerRegistry, r RouteRegistrar, path string, handler HandlerFunc[T, R]) {
	RegisterHandler(hr, r, http.MethodGet, path, handler)
}

// POST registers a POST handler.
func POST[T any, R any](hr *HandlerRegistry, r RouteRegistrar, path string, handler HandlerFunc[T, R]) {
	RegisterHandler(hr, r, http.MethodPost, path, handler)
}

// DELETE registers a DELETE handler.
func DELETE[T any, R any](hr *HandlerRegistry, r RouteRegistrar, path string, handler HandlerFunc[T, R]) {
	RegisterHandler(hr, r, http.MethodDelete, path, handler)
}

// ResultLike exposes status, headers, and payload for successful responses.
type ResultLike interface {
	ResultMeta() (status int, headers http.Header, data any)
}

// Result lets handlers customize status and headers while keeping a typed payload.
type Result[R any] struct {
	Data    R
	Status  int
	Headers http.Header
}

// ResultMeta implements ResultLike for Result[R].
func (r Result[R]) ResultMeta() (status int, headers http.Header, data any) {
	return r.Status, r.Headers, r.Data
}

// NoContentResult represents a 204 No Content response without a body.
type NoContentResult struct{}

// ResultMeta implements ResultLike for NoContentResult.
func (NoContentResult) ResultMeta() (status int, headers http.Header, data any) {
	return http.StatusNoContent, nil, nil
}

// NoContent returns a 204 No Content result.
func NoContent() NoContentResult { return NoContentResult{} }

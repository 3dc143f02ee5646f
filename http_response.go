package accounts

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Envelope statuses
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// SuccessEnvelope wraps every successful payload
type SuccessEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorEntry is one reported failure
type ErrorEntry struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Source     string `json:"source"`
}

// FailureEnvelope wraps every failed response
type FailureEnvelope struct {
	Status string       `json:"status"`
	Errors []ErrorEntry `json:"errors"`
}

// SendSuccess writes data under the success envelope
func SendSuccess(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(SuccessEnvelope{
		Status: StatusSuccess,
		Data:   data,
	})
}

// NewFailureEnvelope converts err into the response body and status. Server
// errors never expose their cause.
func NewFailureEnvelope(err error) (int, FailureEnvelope) {
	e := AsError(err)
	status := StatusOf(e)
	env := FailureEnvelope{Status: envelopeStatus(status)}

	if fields, ok := goerrors.GetValidationErrors(e); ok && IsKind(e, KindValidationFailed) {
		for _, f := range fields {
			env.Errors = append(env.Errors, ErrorEntry{
				StatusCode: status,
				Message:    f.Message,
				Code:       e.TextCode,
				Source:     f.Field,
			})
		}
		return status, env
	}

	message := e.Message
	if IsKind(e, KindServerError) {
		message = ErrServer.Message
	}

	env.Errors = []ErrorEntry{{
		StatusCode: status,
		Message:    message,
		Code:       e.TextCode,
		Source:     SourceOf(e),
	}}
	return status, env
}

// FiberErrorHandler is installed as fiber's Config.ErrorHandler so every
// returned error leaves through the failure envelope.
func FiberErrorHandler(logger Logger, debug bool) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		status, env := NewFailureEnvelope(err)

		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		} else {
			logger.Debug("request rejected", "method", c.Method(), "path", c.Path(), "error", err)
		}

		if debug {
			logger.Debug("error response", "body", print.MaybePrettyJSON(env))
		}

		return c.Status(status).JSON(env)
	}
}

func envelopeStatus(code int) string {
	if code >= http.StatusInternalServerError {
		return StatusError
	}
	return StatusFail
}

// mapFiberError carries fiber's routing and body errors into the envelope,
// text codes derived from the status.
func mapFiberError(err error) *Error {
	var fe *fiber.Error
	if !goerrors.As(err, &fe) {
		return nil
	}

	textCode := goerrors.HTTPStatusToTextCode(fe.Code)
	if fe.Code >= http.StatusInternalServerError {
		textCode = KindServerError.TextCode()
	}

	return goerrors.New(fe.Message, goerrors.HTTPStatusToCategory(fe.Code)).
		WithCode(fe.Code).
		WithTextCode(textCode).
		WithMetadata(map[string]any{MetaSource: SourceServer})
}

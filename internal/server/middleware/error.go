package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/chat"
	"github.com/nulzo/chat-router/internal/credentials"
	"github.com/nulzo/chat-router/internal/gateway"
	"github.com/nulzo/chat-router/internal/integrations"
	"github.com/nulzo/chat-router/pkg/api"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error pushed by a handler as an RFC 9457
// problem. Domain errors are translated here so handlers can pass them
// through untouched.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		problem := ToProblem(c.Errors.Last().Err)
		if problem.Log != nil {
			fields := []zap.Field{
				zap.Int("status", problem.Status),
				zap.String("path", c.Request.URL.Path),
				zap.Error(problem.Log),
			}
			if problem.Status >= http.StatusInternalServerError {
				logger.Error("Request failed", fields...)
			} else {
				logger.Debug("Request rejected", fields...)
			}
		}

		// RFC 9457 dictates the json is at the root
		c.Header("Content-Type", "application/problem+json")
		c.JSON(problem.Status, problem)
		c.Abort()
	}
}

// ToProblem maps an error onto the problem a client should see.
func ToProblem(err error) *api.Problem {
	var (
		problem  *api.Problem
		routeErr *gateway.RouteError
		valErr   *credentials.ValidationError
		inputErr *chat.InputError
		integErr *integrations.InvalidInputError
	)

	switch {
	case errors.As(err, &problem):
		return problem

	case errors.As(err, &routeErr):
		return routeProblem(routeErr)

	case errors.As(err, &inputErr):
		return api.BadRequestError(inputErr.Error(), api.WithKind("invalid_input"), api.WithLog(err))

	case errors.As(err, &valErr):
		return api.BadRequestError(valErr.Reason,
			api.WithKind("invalid_credential"),
			api.WithExtension("provider", valErr.Provider),
			api.WithLog(err),
		)

	case errors.As(err, &integErr):
		return api.BadRequestError(integErr.Field+" "+integErr.Reason, api.WithKind("invalid_integration"), api.WithLog(err))

	case errors.Is(err, chat.ErrIntegrationNotFound):
		return api.NotFoundError(err.Error(), api.WithKind("integration_not_found"))

	case errors.Is(err, integrations.ErrNotFound):
		return api.NotFoundError("integration not found", api.WithKind("integration_not_found"))

	case errors.Is(err, credentials.ErrNotFound):
		return api.NotFoundError("no API key stored for this provider", api.WithKind("credential_not_found"))

	case errors.Is(err, integrations.ErrConflict):
		return api.ConflictError(err.Error(), api.WithKind("integration_conflict"))
	}

	return api.InternalError("An unexpected error occurred.", err)
}

func routeProblem(e *gateway.RouteError) *api.Problem {
	opts := []api.ProblemOption{
		api.WithKind(string(e.Kind)),
		api.WithExtension("provider", e.Provider),
		api.WithLog(e),
	}

	switch e.Kind {
	case gateway.KindMissingCredential:
		return api.BadRequestError("No API key found for "+e.Provider+". Please add your API key in Settings.", opts...)
	case gateway.KindUnknownProvider, gateway.KindLocalhostOnCloud, gateway.KindInvalidIntegration:
		return api.BadRequestError(e.Message, opts...)
	case gateway.KindUpstream:
		return api.BadGatewayError("Error calling "+e.Provider+" API: "+e.Message, opts...)
	case gateway.KindAllFallbacksExhausted:
		opts = append(opts,
			api.WithExtension("attempted", e.Attempted),
			api.WithExtension("candidates", e.Candidates),
		)
		detail := e.Message
		if msg := gateway.LastUpstreamMessage(e.Err); msg != "" {
			detail += ": " + msg
		}
		return api.New(http.StatusInternalServerError, "All Fallbacks Exhausted", detail, opts...)
	}
	return api.InternalError("routing failed", e)
}

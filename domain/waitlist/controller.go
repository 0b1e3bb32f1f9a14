package waitlist

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/akeren/clariolane-waitlist/config/router"
	"github.com/akeren/clariolane-waitlist/pkg/constants"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
	"github.com/akeren/clariolane-waitlist/pkg/validation"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const joinPath = "join-waitlist"

var registerRulesOnce sync.Once

// NewWaitlistController serves POST /v1/join-waitlist.
func NewWaitlistController(service WaitlistService) *router.RESTController {
	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			registerBindingRules()
			rs.AddPostHandler(c, joinPath, joinWaitlistHandler(service))
		},
	)
}

// NewWaitlistFunctionsController serves the same handler under /functions/v1, the path
// already-deployed landing pages post to.
func NewWaitlistFunctionsController(service WaitlistService) *router.RESTController {
	return router.NewRESTController(
		"WaitlistFunctionsController",
		"/functions/v1",
		func(rs *router.RouterService, c *router.RESTController) {
			registerBindingRules()
			rs.AddPostHandler(c, joinPath, joinWaitlistHandler(service))
		},
	)
}

func registerBindingRules() {
	registerRulesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("waitlist: gin binding validator is not go-playground/validator")
		}
		if err := validation.RegisterEmailShape(v); err != nil {
			panic("waitlist: register email rule: " + err.Error())
		}
	})
}

func joinWaitlistHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req JoinWaitlistRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			var validationErrs validator.ValidationErrors
			if errors.As(err, &validationErrs) {
				logger.Warn("Rejected waitlist submission", "violations", apperrors.FormatValidationErrors(err, &req))
				return router.BadRequestResult(constants.MessageInvalidEmail, nil)
			}

			// Well-formed JSON whose email is not a string is an invalid address, not a bad body.
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field == "email" {
				logger.Warn("Rejected waitlist submission", "error", err)
				return router.BadRequestResult(constants.MessageInvalidEmail, nil)
			}

			logger.Warn("Failed to bind request", "error", err)
			return router.BadRequestResult(constants.MessageInvalidBody, nil)
		}

		response, err := service.Join(ctx.Request.Context(), &req)
		if err != nil {
			return router.ErrorResult(joinStatusCode(err), apperrors.GetHumanReadableMessage(err), nil)
		}

		return router.MessageResult(response.Message)
	}
}

// joinStatusCode reports insert failures as 400: the form treats every non-2xx the same way
// and shows the message.
func joinStatusCode(err error) int {
	if apperrors.GetErrorType(err) == apperrors.ErrorTypeDatabaseError {
		return http.StatusBadRequest
	}
	return apperrors.HTTPStatusCode(err)
}

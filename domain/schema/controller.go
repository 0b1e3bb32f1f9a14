package schema

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/akeren/clariolane-waitlist/config/router"
	"github.com/akeren/clariolane-waitlist/internal/log"
	"github.com/akeren/clariolane-waitlist/pkg/constants"
	apperrors "github.com/akeren/clariolane-waitlist/pkg/errors"
)

const setupPath = "setup-db"

// NewSchemaController serves /v1/setup-db for every method. It answers 200 once the table
// exists and 500 when provisioning fails. With a service role key configured, a request
// without the matching "Authorization: Bearer <key>" header gets 401 and never reaches the
// provisioner; that gate is an addition to the unauthenticated endpoint landing pages used.
func NewSchemaController(provisioner Provisioner, serviceRoleKey string, logger *log.Logger) *router.RESTController {
	return router.NewVersionedRESTController(
		"SchemaController",
		"v1",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			mountSetupHandler(rs, c, provisioner, serviceRoleKey, logger)
		},
	)
}

// NewSchemaFunctionsController serves the same handler under /functions/v1.
func NewSchemaFunctionsController(provisioner Provisioner, serviceRoleKey string, logger *log.Logger) *router.RESTController {
	return router.NewRESTController(
		"SchemaFunctionsController",
		"/functions/v1",
		func(rs *router.RouterService, c *router.RESTController) {
			mountSetupHandler(rs, c, provisioner, serviceRoleKey, logger)
		},
	)
}

func mountSetupHandler(rs *router.RouterService, c *router.RESTController, provisioner Provisioner, serviceRoleKey string, logger *log.Logger) {
	if serviceRoleKey == "" {
		logger.Warn("Setup endpoint is unauthenticated: SUPABASE_SERVICE_ROLE_KEY not set", "mount", c.MountPoint())
	}
	rs.AddAnyHandler(c, setupPath, setupDatabaseHandler(provisioner), requireServiceRole(serviceRoleKey))
}

func setupDatabaseHandler(provisioner Provisioner) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)
		logger.Info("Schema setup requested", "method", ctx.Request.Method)

		if _, err := provisioner.Provision(ctx.Request.Context()); err != nil {
			return router.ErrorResult(apperrors.HTTPStatusCode(err), apperrors.GetHumanReadableMessage(err), nil)
		}

		return router.MessageResult(constants.MessageTableCreated)
	}
}

// requireServiceRole checks "Authorization: Bearer <key>" and aborts with 401 on a missing or
// wrong token. An empty key disables the check, leaving only the 200/500 outcomes.
func requireServiceRole(key string) router.MiddlewareFunc {
	return func(c *router.RequestContext) {
		if key == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(key)) != 1 {
			router.GetLogger(c).Warn("Rejected setup request: missing or invalid service role key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, router.UnauthorizedResult("Unauthorized").ToJSON())
			return
		}

		c.Next()
	}
}

package router

import (
	"fmt"
	"net/http"
	"strings"
)

// anyMethod is the key used for handlers registered with AddAnyHandler.
const anyMethod = "ANY"

func normalizePath(controller *RESTController, relativePath string) string {
	var path string = controller.mountPoint

	if relativePath != "" {
		path = path + "/" + relativePath
	}

	if path[0] != '/' {
		path = "/" + path
	}

	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	return strings.ReplaceAll(path, "//", "/")
}

func (routerService *RouterService) keyForPathAndMethod(path, method string) string {
	return fmt.Sprintf("%s-%s", method, path)
}

func (controller *RESTController) bindHandlerToController(routerService *RouterService, path, method string) {
	key := routerService.keyForPathAndMethod(path, method)
	otherController, foundPrevious := routerService.handlerToControllerMap[key]

	if !foundPrevious && method != anyMethod {
		otherController, foundPrevious = routerService.handlerToControllerMap[routerService.keyForPathAndMethod(path, anyMethod)]
	}

	if foundPrevious {
		panic(fmt.Sprintf("A handler is already registered for path '%s' by controller '%s'", path, otherController.name))
	}

	routerService.handlerToControllerMap[key] = controller
}

func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil {
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("A handler returned an undefined result. This typically indicates a bug in a handler's implementation.").ToJSON())
			return
		}

		c.JSON(result.StatusCode, result.ToJSON())
	}
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	mountPoint = strings.ReplaceAll("/"+mountPoint, "//", "/")

	return &RESTController{
		name:       name,
		mountPoint: mountPoint,
		version:    "",
		prepare:    prepare,
	}
}

func NewVersionedRESTController(name, version, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	// Prefixing the version to the mount point at controller creation clarifies routing and leaves no room for ambiguity.
	finalPath := strings.ReplaceAll("/"+version+"/"+mountPoint, "//", "/")

	return &RESTController{
		name:       name,
		mountPoint: finalPath,
		version:    version,
		prepare:    prepare,
	}
}

// MountPoint is the controller's path prefix, version included.
func (controller *RESTController) MountPoint() string {
	return controller.mountPoint
}

func (routerService *RouterService) register(controller *RESTController, method, path string, handler HandlerFunction, middlewares []MiddlewareFunc) string {
	controller.handlerCount++
	mountPoint := normalizePath(controller, path)
	controller.bindHandlerToController(routerService, mountPoint, method)
	chain := append(middlewares, createHandler(handler))

	if method == anyMethod {
		routerService.engine.Any(mountPoint, chain...)
	} else {
		routerService.engine.Handle(method, mountPoint, chain...)
	}

	routerService.logger.Debug("Handler registered", "method", method, "path", mountPoint)
	return mountPoint
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, http.MethodPost, path, handler, middlewares)
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, http.MethodGet, path, handler, middlewares)
}

// AddAnyHandler answers every HTTP method on path. Preflight OPTIONS requests never reach
// handler because the CORS middleware answers them first.
func (routerService *RouterService) AddAnyHandler(
	controller *RESTController,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, anyMethod, path, handler, middlewares)
}

package validator

import (
	"fmt"

	"batepapo/backend/pkg/errors"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// OpenAPIValidator validates requests against an OpenAPI document
type OpenAPIValidator struct {
	swagger *openapi3.T
	router  routers.Router
}

// NewOpenAPIValidator creates a new OpenAPI validator
func NewOpenAPIValidator(schemaPath string) (*OpenAPIValidator, error) {
	swagger, err := loadOpenAPISchema(schemaPath)
	if err != nil {
		return nil, err
	}

	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("error creating OpenAPI router: %w", err)
	}

	return &OpenAPIValidator{
		swagger: swagger,
		router:  router,
	}, nil
}

// loadOpenAPISchema loads the OpenAPI schema from disk
func loadOpenAPISchema(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI schema from %s: %w", path, err)
	}

	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI schema: %w", err)
	}

	return swagger, nil
}

// Middleware returns a Gin middleware function that validates requests against the OpenAPI schema.
// Requests to routes the document does not describe pass through untouched.
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route, pathParams, err := v.router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         true,
			},
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			_ = c.Error(errors.UnprocessableWithDetails("INVALID_REQUEST", "Request does not match the API schema", err.Error()))
			c.Abort()
			return
		}

		c.Next()
	}
}

package router

import (
	"os"
	"path/filepath"

	"batepapo/backend/pkg/validator"
)

// AddOpenAPIValidation adds OpenAPI validation middleware to the router.
// It must run before the validated routes are registered.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if schemaPath == "" {
		return
	}
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		r.Logger.Warn("OpenAPI schema file not found, skipping validation", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.Error("Failed to initialize OpenAPI validator", "error", err)
		return
	}

	r.Engine.Use(v.Middleware())
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath)

	// Serve the schema itself
	r.Engine.StaticFile("/api/docs/"+filepath.Base(schemaPath), schemaPath)
}

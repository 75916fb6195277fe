package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AuditEntry describes one state-changing API call.
type AuditEntry struct {
	Action     string // create, update, delete, restore
	Resource   string
	ResourceID string
	Method     string
	Path       string
	RequestID  string
	RemoteIP   string
	StatusCode int
}

// Audit logs every mutating request under /api/v1/ once the handler has
// run. Reads and previews, which change no stored state, are not audited.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditable(req.Method, req.URL.Path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Action:     methodToAction(req.Method, req.URL.Path),
				Method:     req.Method,
				Path:       req.URL.Path,
				RemoteIP:   c.RealIP(),
				StatusCode: c.Response().Status,
			}
			entry.Resource, entry.ResourceID = splitResource(req.URL.Path)
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}

			logger.Info().
				Str("type", "report_audit").
				Str("request_id", entry.RequestID).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.RemoteIP).
				Int("status", entry.StatusCode).
				Msg("mutation")

			return err
		}
	}
}

// previewPaths accept POST but only compute a response.
var previewPaths = map[string]bool{
	"/api/v1/test-groups": true,
}

func isAuditable(method, path string) bool {
	if !strings.HasPrefix(path, "/api/v1/") || previewPaths[strings.TrimSuffix(path, "/")] {
		return false
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func methodToAction(method, path string) string {
	switch method {
	case http.MethodPost:
		if strings.HasSuffix(path, "/restore") {
			return "restore"
		}
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return "read"
}

// splitResource extracts the collection and item id from an API path:
//   - /api/v1/reports            -> reports, ""
//   - /api/v1/reports/RPT1/status -> reports, RPT1
func splitResource(path string) (resource, id string) {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		resource = segments[0]
	} else {
		resource = "unknown"
	}
	if len(segments) > 1 {
		id = segments[1]
	}
	return resource, id
}

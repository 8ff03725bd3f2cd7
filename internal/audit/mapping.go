package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// Route overrides where the method alone does not name the action.
var routeOverrides = map[string]ActionResource{
	"POST /api/admin/transfer/cleanup": {Action: "cleanup", Resource: ResourceTransferCode},
	"POST /api/transfer/redeem":        {Action: "redeem", Resource: ResourceTransferCode},
}

// ParseRoute returns action and resource for an HTTP method and registered route
// (e.g. GET /api/admin/transfer/codes -> list transfer_code).
// The resource is the last static path segment, singularized; route parameters are skipped.
func ParseRoute(method, route string) ActionResource {
	if ar, ok := routeOverrides[method+" "+route]; ok {
		return ar
	}
	resource := routeResource(route)
	action := methodToAction(method, strings.HasSuffix(route, "s") || strings.HasSuffix(route, "/active"))
	return ActionResource{Action: action, Resource: resource}
}

func routeResource(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if p == "" || p == "active" || strings.HasPrefix(p, ":") || strings.HasPrefix(p, "*") {
			continue
		}
		prev := ""
		if i > 0 {
			prev = parts[i-1]
		}
		// transfer/codes -> transfer_code
		name := strings.TrimSuffix(p, "s")
		if prev != "" && prev != "api" && prev != "admin" && !strings.HasPrefix(prev, ":") {
			name = strings.TrimSuffix(prev, "s") + "_" + name
		}
		return name
	}
	return "unknown"
}

func methodToAction(method string, collection bool) string {
	switch method {
	case http.MethodGet:
		if collection {
			return "list"
		}
		return "get"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

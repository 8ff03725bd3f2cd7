package audit

import "testing"

func TestParseRoute(t *testing.T) {
	tests := []struct {
		method, route    string
		action, resource string
	}{
		{"GET", "/api/admin/transfer/codes", "list", "transfer_code"},
		{"POST", "/api/admin/transfer/codes", "create", "transfer_code"},
		{"POST", "/api/admin/transfer/cleanup", "cleanup", "transfer_code"},
		{"POST", "/api/transfer/redeem", "redeem", "transfer_code"},
		{"GET", "/api/transfer/codes/active", "list", "transfer_code"},
		{"PUT", "/api/devices/:handle/subscription", "update", "subscription"},
		{"DELETE", "/api/devices/:handle/subscription", "delete", "subscription"},
		{"OPTIONS", "/", "options", "unknown"},
	}
	for _, tt := range tests {
		ar := ParseRoute(tt.method, tt.route)
		if ar.Action != tt.action {
			t.Errorf("%s %s action = %q, want %q", tt.method, tt.route, ar.Action, tt.action)
		}
		if ar.Resource != tt.resource {
			t.Errorf("%s %s resource = %q, want %q", tt.method, tt.route, ar.Resource, tt.resource)
		}
	}
}

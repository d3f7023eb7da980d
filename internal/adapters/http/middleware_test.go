package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestActorFromRequest(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		auth        string
		roleHeader  string
		wantSubject string
		wantRole    string
		wantErr     bool
	}{
		{name: "plain subject", auth: "Bearer client-1", wantSubject: "client-1", wantRole: "user"},
		{name: "user prefix", auth: "bearer user:client-1", wantSubject: "client-1", wantRole: "user"},
		{name: "admin prefix", auth: "Bearer admin:ops-1", wantSubject: "ops-1", wantRole: "admin"},
		{name: "admin acting as user", auth: "Bearer admin:ops-1", roleHeader: "user", wantSubject: "ops-1", wantRole: "user"},
		{name: "header cannot elevate", auth: "Bearer client-1", roleHeader: "admin", wantSubject: "client-1", wantRole: "user"},
		{name: "header cannot claim system", auth: "Bearer client-1", roleHeader: "system", wantSubject: "client-1", wantRole: "user"},
		{name: "missing header", wantErr: true},
		{name: "basic scheme", auth: "Basic abc", wantErr: true},
		{name: "empty admin subject", auth: "Bearer admin:", wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/v1/escrows/esc-1", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			if tc.roleHeader != "" {
				req.Header.Set(headerActorRole, tc.roleHeader)
			}
			req.Header.Set(headerIdempotency, " idem-1 ")

			actor, err := actorFromRequest(req)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got actor %+v", actor)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if actor.SubjectID != tc.wantSubject || actor.Role != tc.wantRole {
				t.Fatalf("unexpected actor: %+v", actor)
			}
			if actor.IdempotencyKey != "idem-1" {
				t.Fatalf("idempotency key not trimmed: %q", actor.IdempotencyKey)
			}
		})
	}
}

package controllers

import (
	"net/http"

	"github.com/harlowe-labs/scenthq-backend/api/middleware"
	"github.com/harlowe-labs/scenthq-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if org := middleware.OrgIDFromContext(r.Context()); org != "" {
			payload["org_id"] = org
		}
		responses.WriteSuccess(w, payload)
	}
}

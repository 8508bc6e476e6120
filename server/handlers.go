package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Daskott/rightguard/server/auth/key"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/validation"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validation.RegisterValidators(validate); err != nil {
		panic(err)
	}
}

type subscriptionRequest struct {
	SubscriptionStatus string `json:"subscription_status" validate:"required,oneof=free premium"`
}

type incidentRequest struct {
	models.IncidentInput
	// NotifyContacts defaults to true
	NotifyContacts *bool `json:"notify_contacts,omitempty"`
}

type cancelAlertsResponse struct {
	IncidentID string `json:"incident_id"`
	Message    string `json:"message"`
}

func (s *Server) health(rw http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status": "ok",
		"remote": s.components.Users != nil,
	}
	if s.components.Workers != nil {
		data["jobs"] = jobStatuses(s.components)
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: data}, http.StatusOK)
}

func (s *Server) jwks(rw http.ResponseWriter, r *http.Request) {
	if s.components.KeyPair == nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"no signing key configured"}}, http.StatusNotFound)
		return
	}

	keyPairJWK, err := s.components.KeyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(keyPairJWK))
}

// ---------------------------------------------------------------------------------//
// User
// --------------------------------------------------------------------------------//

func (s *Server) findMe(rw http.ResponseWriter, r *http.Request) {
	if s.components.Users == nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"remote store is not configured"}}, http.StatusServiceUnavailable)
		return
	}

	writeResult(rw, s.components.Users.EnsureUser(decodedJWTFrom(r).Claims.Subject), http.StatusOK)
}

func (s *Server) updateSubscription(rw http.ResponseWriter, r *http.Request) {
	if s.components.Users == nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"remote store is not configured"}}, http.StatusServiceUnavailable)
		return
	}

	data := subscriptionRequest{}
	if !decodeBody(rw, r, &data) {
		return
	}

	if err := validate.Struct(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: validationErrors(err)}, http.StatusBadRequest)
		return
	}

	userID := decodedJWTFrom(r).Claims.Subject
	writeResult(rw, s.components.Users.UpdateUserSubscription(userID, data.SubscriptionStatus), http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Emergency contacts
// --------------------------------------------------------------------------------//

func (s *Server) listContacts(rw http.ResponseWriter, r *http.Request) {
	writeResult(rw, models.Ok(sessionFrom(r).Contacts.Contacts()), http.StatusOK)
}

func (s *Server) createContact(rw http.ResponseWriter, r *http.Request) {
	data := models.ContactInput{}
	if !decodeBody(rw, r, &data) {
		return
	}

	writeResult(rw, sessionFrom(r).Contacts.AddContact(r.Context(), data), http.StatusCreated)
}

func (s *Server) updateContact(rw http.ResponseWriter, r *http.Request) {
	data := models.ContactUpdate{}
	if !decodeBody(rw, r, &data) {
		return
	}

	writeResult(rw, sessionFrom(r).Contacts.UpdateContact(r.Context(), mux.Vars(r)["id"], data), http.StatusOK)
}

func (s *Server) deleteContact(rw http.ResponseWriter, r *http.Request) {
	writeResult(rw, sessionFrom(r).Contacts.RemoveContact(r.Context(), mux.Vars(r)["id"]), http.StatusOK)
}

func (s *Server) contactStats(rw http.ResponseWriter, r *http.Request) {
	writeResult(rw, models.Ok(sessionFrom(r).Contacts.Stats(time.Now())), http.StatusOK)
}

func (s *Server) testAlert(rw http.ResponseWriter, r *http.Request) {
	// alerts keep going if the client hangs up
	ctx := context.WithoutCancel(r.Context())
	writeResult(rw, sessionFrom(r).Contacts.TestAlerts(ctx), http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Incidents
// --------------------------------------------------------------------------------//

func (s *Server) listIncidents(rw http.ResponseWriter, r *http.Request) {
	writeResult(rw, models.Ok(sessionFrom(r).Incidents.Incidents()), http.StatusOK)
}

func (s *Server) createIncident(rw http.ResponseWriter, r *http.Request) {
	data := incidentRequest{}
	if !decodeBody(rw, r, &data) {
		return
	}

	sess := sessionFrom(r)

	var contacts []models.EmergencyContact
	if data.NotifyContacts == nil || *data.NotifyContacts {
		contacts = sess.Contacts.Contacts()
	}

	// alerts keep going if the client hangs up
	ctx := context.WithoutCancel(r.Context())
	writeResult(rw, sess.Incidents.AddIncident(ctx, data.IncidentInput, contacts), http.StatusCreated)
}

func (s *Server) updateIncident(rw http.ResponseWriter, r *http.Request) {
	data := models.IncidentUpdate{}
	if !decodeBody(rw, r, &data) {
		return
	}

	writeResult(rw, sessionFrom(r).Incidents.UpdateIncident(r.Context(), mux.Vars(r)["id"], data), http.StatusOK)
}

func (s *Server) deleteIncident(rw http.ResponseWriter, r *http.Request) {
	writeResult(rw, sessionFrom(r).Incidents.RemoveIncident(mux.Vars(r)["id"]), http.StatusOK)
}

func (s *Server) summarizeIncident(rw http.ResponseWriter, r *http.Request) {
	writeResult(rw, sessionFrom(r).Incidents.Summarize(r.Context(), mux.Vars(r)["id"]), http.StatusOK)
}

func (s *Server) cancelAlerts(rw http.ResponseWriter, r *http.Request) {
	incidentID := mux.Vars(r)["id"]

	incident := sessionFrom(r).Incidents.Get(incidentID)
	if !incident.Success() {
		writeResult(rw, incident, http.StatusOK)
		return
	}

	writeResult(rw, models.Ok(cancelAlertsResponse{
		IncidentID: incidentID,
		Message:    s.components.Dispatcher.Cancel(incidentID),
	}), http.StatusOK)
}

func (s *Server) alertHistory(rw http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if !sess.Authenticated {
		writeResponse(rw, ResponsePayload{Errors: []string{"sign in to view alert history"}}, http.StatusUnauthorized)
		return
	}

	writeResult(rw, s.components.Dispatcher.History(r.Context(), sess.UserID), http.StatusOK)
}

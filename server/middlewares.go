package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Daskott/rightguard/server/auth"
	"github.com/Daskott/rightguard/server/session"
	"github.com/fatih/color"
)

const (
	DeviceIDHeader = "X-Device-ID"

	noTokenMsg      = "no token provided"
	invalidTokenMsg = "invalid token provided"
)

var (
	redColor    = color.New(color.FgRed).SprintFunc()
	yellowColor = color.New(color.FgYellow).SprintFunc()
	greenColor  = color.New(color.FgGreen).SprintFunc()
)

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         200,
		}

		defer func() {
			responseStatus := greenColor(responseWriter.Status)
			if responseWriter.Status >= 400 {
				responseStatus = redColor(responseWriter.Status)
			}

			logg.Info(
				r.Method, " ",
				r.RequestURI, " ",
				responseStatus, " ",
				yellowColor(fmt.Sprintf("[%v]", time.Since(start))))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func (s *Server) initialContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")

		// Add decoded token to request context
		ctx := context.WithValue(r.Context(), RequestContextKey("decodedJWT"), s.decodeAndVerifyAuthHeader(r))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func protectedRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodedJWT := decodedJWTFrom(r)
		if decodedJWT.ErrorMsg != "" {
			writeResponse(w, ResponsePayload{Errors: []string{decodedJWT.ErrorMsg}}, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware attaches the caller's session. Requests without a token use
// the demo session of the device named in the X-Device-ID header.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodedJWT := decodedJWTFrom(r)
		deviceID := strings.TrimSpace(r.Header.Get(DeviceIDHeader))

		var sess *session.Session
		var err error

		switch {
		case decodedJWT.Claims != nil:
			sess, err = s.components.Registry.ForUser(r.Context(), decodedJWT.Claims.Subject)
		case decodedJWT.ErrorMsg == noTokenMsg && deviceID != "":
			sess, err = s.components.Registry.ForDevice(r.Context(), deviceID)
		case decodedJWT.ErrorMsg == noTokenMsg:
			writeResponse(w, ResponsePayload{Errors: []string{"no token or " + DeviceIDHeader + " header provided"}}, http.StatusUnauthorized)
			return
		default:
			writeResponse(w, ResponsePayload{Errors: []string{decodedJWT.ErrorMsg}}, http.StatusUnauthorized)
			return
		}

		if errors.Is(err, session.ErrInvalidDeviceID) {
			writeResponse(w, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
			return
		}
		if err != nil {
			writeResponse(w, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), RequestContextKey("session"), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) decodeAndVerifyAuthHeader(r *http.Request) DecodedJWT {
	authHeaderList := strings.Split(r.Header.Get("Authorization"), "Bearer ")
	if len(authHeaderList) < 2 {
		return DecodedJWT{ErrorMsg: noTokenMsg}
	}

	if s.components.Keys == nil {
		return DecodedJWT{ErrorMsg: invalidTokenMsg}
	}

	tokenClaims, err := auth.DecodeJWT(r.Context(), authHeaderList[1], s.components.Keys)
	if err != nil {
		logg.Debugf("%v%v", prefix, err)
		return DecodedJWT{ErrorMsg: invalidTokenMsg}
	}

	return DecodedJWT{Claims: tokenClaims}
}

func decodedJWTFrom(r *http.Request) DecodedJWT {
	decodedJWT, _ := r.Context().Value(RequestContextKey("decodedJWT")).(DecodedJWT)
	return decodedJWT
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(RequestContextKey("session")).(*session.Session)
	return sess
}

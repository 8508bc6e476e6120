package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/utils"
	"github.com/go-playground/validator"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Errorf("%v%v", prefix, payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Infof("%v%v", prefix, payLoad.Errors)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

// writeResult renders res. A remote_unavailable result still carries the locally
// stored data, so it is written as 200 with the failure listed in warnings.
func writeResult[T any](rw http.ResponseWriter, res models.Result[T], successStatus int) {
	payload := ResponsePayload{Success: res.Success(), Warnings: res.Warnings, Data: res.Data}

	switch {
	case res.Success():
		writeResponse(rw, payload, successStatus)
	case res.Kind == models.RemoteUnavailable:
		payload.Warnings = append(payload.Warnings, res.Err)
		writeResponse(rw, payload, http.StatusOK)
	default:
		payload.Data = nil
		payload.Errors = res.Messages()
		writeResponse(rw, payload, statusForKind(res.Kind))
	}
}

func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ValidationError:
		return http.StatusBadRequest
	case models.PreconditionError:
		return http.StatusUnprocessableEntity
	case models.NotFoundError:
		return http.StatusNotFound
	case models.ChannelSendFailure:
		return http.StatusBadGateway
	case models.RemoteUnavailable:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes the json body into data, writing a 400 on failure
func decodeBody(rw http.ResponseWriter, r *http.Request, data interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(data); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid request body: " + err.Error()}}, http.StatusBadRequest)
		return false
	}
	return true
}

func validationErrors(err error) []string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return strings.Split(err.Error(), "\n")
	}

	errs := []string{}
	for _, fieldErr := range validationErrs {
		errs = append(errs, fieldErr.Field()+" failed on the '"+fieldErr.Tag()+"' rule")
	}
	return errs
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("%vRightGuard server is listening on port%v", prefix, server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(components *Components, server *http.Server) {
	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Errorf("%vRightGuard server shutdown failed:%+s", prefix, err)
	}

	stopPeriodicJobs(components)

	if components.Storage != nil {
		if err := backupCache(ctxShutDown, components); err != nil {
			logg.Error(err)
		}
	}

	// Stops the worker pool & closes every backend
	components.Close()

	logg.Infof("%vRightGuard server stopped properly", prefix)
}

// ConfigDirectory retrieves the directory to store rightguard data
// Or logs an error message and then calls os.Exit if it's unable to.
func ConfigDirectory(devMode bool) string {
	// Use 'rightguard' folder in home directory for prod
	configFolderName := "rightguard"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}

package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"

	"whistlevault/intake/reports"
	"whistlevault/messaging/commentrelay"
	"whistlevault/whistlevault"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Start serves the report intake API. It blocks; run it in a goroutine.
func Start() {
	whistlevault.LogCLI("Starting the report intake API", 4)
	srv := &http.Server{
		Handler:           cors.Default().Handler(Router()),
		Addr:              whistlevault.MakeOrGetConfig().GetString("listenAddr"),
		WriteTimeout:      30 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	whistlevault.LogCLI(fmt.Sprintf("listening on "+srv.Addr), 4)
	err := srv.ListenAndServe()
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
}

// Router builds the full HTTP surface, websocket endpoint included.
func Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/register", handleRegister).Methods("POST")
	router.HandleFunc("/report", handleCreateReport).Methods("POST")
	router.HandleFunc("/report/{id:[0-9]+}", handleLedgerReport).Methods("GET")
	router.HandleFunc("/concerns", handleListConcerns).Methods("GET")
	router.HandleFunc("/concerns", handleCreateConcern).Methods("POST")
	router.HandleFunc("/concerns/{id}/status", handleUpdateStatus).Methods("PUT")
	router.HandleFunc("/my_reports/{walletAddress}", handleMyReports).Methods("GET")
	router.HandleFunc("/ws", commentrelay.HandleWebsocket())
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		whistlevault.LogCLI(err.Error(), 3)
	}
}

// writeError maps the error taxonomy onto status codes: validation problems
// are the caller's fault, gateway failures are upstream's.
func writeError(w http.ResponseWriter, err error) {
	var validation whistlevault.ValidationError
	var notFound whistlevault.NotFoundError
	var upload whistlevault.UploadError
	var lookup whistlevault.LookupError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &upload):
		status = http.StatusBadGateway
	case errors.As(err, &lookup):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func handleRegister(w http.ResponseWriter, r *http.Request) {
	var walletAddress string
	if isJSON(r) {
		var body struct {
			WalletAddress string `json:"walletAddress"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
			writeError(w, whistlevault.ValidationError{Field: "walletAddress"})
			return
		}
		walletAddress = body.WalletAddress
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, whistlevault.ValidationError{Field: "walletAddress"})
			return
		}
		walletAddress = r.FormValue("walletAddress")
	}
	outcome, err := reports.RegisterUser(walletAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if outcome.Registered {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{"message": outcome.Message})
}

// handleCreateReport is the full intake path. Two thin adapters feed the one
// reports.CreateReport capability: a multipart form (browser, may carry a
// document) and a JSON body (programmatic, no document).
func handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req reports.CreateRequest
	if isJSON(r) {
		var body struct {
			WalletAddress string `json:"walletAddress"`
			Organization  string `json:"organization"`
			Description   string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
			writeError(w, whistlevault.ValidationError{Field: "walletAddress"})
			return
		}
		req = reports.CreateRequest{
			WalletAddress: body.WalletAddress,
			Organization:  body.Organization,
			Description:   body.Description,
		}
	} else {
		err := r.ParseMultipartForm(whistlevault.MakeOrGetConfig().GetInt64("maxUploadBytes"))
		if err != nil {
			// fall back to a plain form post without a document
			if err = r.ParseForm(); err != nil {
				writeError(w, whistlevault.ValidationError{Field: "walletAddress"})
				return
			}
		}
		req = reports.CreateRequest{
			WalletAddress: r.FormValue("walletAddress"),
			Organization:  r.FormValue("organization"),
			Description:   r.FormValue("description"),
		}
		if file, header, err := r.FormFile("document"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				writeError(w, whistlevault.UploadError{Op: "readDocument", Body: err.Error()})
				return
			}
			req.Document = data
			req.Filename = header.Filename
		}
	}
	result, err := reports.CreateReport(req)
	if err != nil {
		writeError(w, err)
		return
	}
	response := map[string]interface{}{
		"message":    "Report submitted successfully",
		"unsignedTx": result.UnsignedTx,
		"contentId":  result.ContentID,
		"report":     result.Report,
	}
	if result.DocumentURL != "" {
		response["documentUrl"] = result.DocumentURL
	}
	writeJSON(w, http.StatusCreated, response)
}

func handleListConcerns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reports.ListReports(""))
}

func handleCreateConcern(w http.ResponseWriter, r *http.Request) {
	var body reports.ConcernRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		writeError(w, whistlevault.ValidationError{Field: "body"})
		return
	}
	writeJSON(w, http.StatusCreated, reports.CreateConcern(body))
}

func handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		writeError(w, whistlevault.ValidationError{Field: "status"})
		return
	}
	updated, err := reports.UpdateStatus(mux.Vars(r)["id"], body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func handleMyReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reports.ListReports(mux.Vars(r)["walletAddress"]))
}

func handleLedgerReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, whistlevault.ValidationError{Field: "id"})
		return
	}
	ledgerReport, err := reports.LedgerReport(id)
	if err != nil {
		// the original surfaced any contract failure as a 404
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        id,
		"contentId": ledgerReport.ContentID,
		"reporter":  ledgerReport.Reporter,
		"resolved":  ledgerReport.Resolved,
	})
}

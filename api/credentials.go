package api

import (
	"net/http"
	"time"

	"github.com/xraph/filer/credential"
)

type configureCredentialRequest struct {
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serial_number,omitempty"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidTo      time.Time `json:"valid_to"`
	SigningKey   string    `json:"signing_key,omitempty"`

	// PEM is an X.509 certificate. When set it replaces the descriptive
	// fields and validity bounds above. Certificates only.
	PEM string `json:"pem,omitempty"`
}

func (req *configureCredentialRequest) credential(kind credential.Kind) (*credential.Credential, error) {
	if req.PEM != "" {
		if kind != credential.KindCertificate {
			return nil, errPEMKind
		}
		return credential.FromPEM([]byte(req.PEM), req.SigningKey)
	}
	return &credential.Credential{
		Kind:         kind,
		Subject:      req.Subject,
		Issuer:       req.Issuer,
		SerialNumber: req.SerialNumber,
		ValidFrom:    req.ValidFrom,
		ValidTo:      req.ValidTo,
		SigningKey:   req.SigningKey,
	}, nil
}

type credentialCheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func (h *Handler) listCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.filer.Store().ListCredentials(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (h *Handler) checkCredentials(w http.ResponseWriter, r *http.Request) {
	if _, err := h.filer.Credentials().Check(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, credentialCheckResponse{Reason: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, credentialCheckResponse{Allowed: true})
}

func (h *Handler) configureCredential(w http.ResponseWriter, r *http.Request) {
	kind := credential.Kind(r.PathValue("kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown credential kind")
		return
	}

	var req configureCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := req.credential(kind)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.filer.Credentials().Configure(r.Context(), c); err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/filer/catalog"
	"github.com/xraph/filer/credential"
	"github.com/xraph/filer/id"
	"github.com/xraph/filer/internal/entity"
	"github.com/xraph/filer/ledger"
)

// --- Event models ---

type eventModel struct {
	grove.BaseModel `grove:"table:filer_events"`

	ID             string     `grove:"id,pk"`
	EventType      string     `grove:"event_type"`
	Subject        string     `grove:"subject"`
	PayloadVersion string     `grove:"payload_version"`
	Payload        string     `grove:"payload"`
	Digest         string     `grove:"digest"`
	Status         string     `grove:"status"`
	Protocol       string     `grove:"protocol"`
	SubmittedAt    *time.Time `grove:"submitted_at"`
	ProcessedAt    *time.Time `grove:"processed_at"`
	ErrorDetail    string     `grove:"error_detail"`
	StatusDetail   string     `grove:"status_detail"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
}

func toEventModel(evt *ledger.Event) *eventModel {
	status := evt.Status
	if status == "" {
		status = ledger.StatusPending
	}
	return &eventModel{
		ID:             evt.ID.String(),
		EventType:      string(evt.Type),
		Subject:        evt.Subject,
		PayloadVersion: evt.PayloadVersion,
		Payload:        string(evt.Payload),
		Digest:         evt.Digest,
		Status:         string(status),
		Protocol:       evt.Protocol,
		SubmittedAt:    evt.SubmittedAt,
		ProcessedAt:    evt.ProcessedAt,
		ErrorDetail:    evt.ErrorDetail,
		StatusDetail:   evt.StatusDetail,
		CreatedAt:      evt.CreatedAt,
		UpdatedAt:      evt.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) (*ledger.Event, error) {
	evtID, err := id.ParseFilingEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}
	var payload json.RawMessage
	if m.Payload != "" {
		payload = json.RawMessage(m.Payload)
	}
	return &ledger.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             evtID,
		Type:           catalog.Type(m.EventType),
		Subject:        m.Subject,
		PayloadVersion: m.PayloadVersion,
		Payload:        payload,
		Digest:         m.Digest,
		Status:         ledger.Status(m.Status),
		Protocol:       m.Protocol,
		SubmittedAt:    m.SubmittedAt,
		ProcessedAt:    m.ProcessedAt,
		ErrorDetail:    m.ErrorDetail,
		StatusDetail:   m.StatusDetail,
	}, nil
}

// --- Credential models ---

type credentialModel struct {
	grove.BaseModel `grove:"table:filer_credentials"`

	ID           string    `grove:"id,pk"`
	Kind         string    `grove:"kind,unique"`
	Subject      string    `grove:"subject"`
	Issuer       string    `grove:"issuer"`
	SerialNumber string    `grove:"serial_number"`
	ValidFrom    time.Time `grove:"valid_from"`
	ValidTo      time.Time `grove:"valid_to"`
	SigningKey   string    `grove:"signing_key"`
	CreatedAt    time.Time `grove:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"`
}

func toCredentialModel(c *credential.Credential) *credentialModel {
	return &credentialModel{
		ID:           c.ID.String(),
		Kind:         string(c.Kind),
		Subject:      c.Subject,
		Issuer:       c.Issuer,
		SerialNumber: c.SerialNumber,
		ValidFrom:    c.ValidFrom,
		ValidTo:      c.ValidTo,
		SigningKey:   c.SigningKey,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func fromCredentialModel(m *credentialModel) (*credential.Credential, error) {
	credID, err := id.ParseCredentialID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse credential ID %q: %w", m.ID, err)
	}
	return &credential.Credential{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           credID,
		Kind:         credential.Kind(m.Kind),
		Subject:      m.Subject,
		Issuer:       m.Issuer,
		SerialNumber: m.SerialNumber,
		ValidFrom:    m.ValidFrom,
		ValidTo:      m.ValidTo,
		SigningKey:   m.SigningKey,
	}, nil
}

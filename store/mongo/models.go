package mongo

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

// BSON datetimes carry milliseconds; times are truncated on write so a
// stored record reads back exactly as written.
func msTime(t time.Time) time.Time { return t.Truncate(time.Millisecond) }

func msTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := msTime(*t)
	return &v
}

// --- Event models ---

type eventModel struct {
	grove.BaseModel `grove:"table:filer_events"`

	ID             string     `grove:"id,pk"           bson:"_id"`
	EventType      string     `grove:"event_type"      bson:"event_type"`
	Subject        string     `grove:"subject"         bson:"subject"`
	PayloadVersion string     `grove:"payload_version" bson:"payload_version"`
	Payload        string     `grove:"payload"         bson:"payload"`
	Digest         string     `grove:"digest"          bson:"digest"`
	Status         string     `grove:"status"          bson:"status"`
	Protocol       string     `grove:"protocol"        bson:"protocol,omitempty"`
	SubmittedAt    *time.Time `grove:"submitted_at"    bson:"submitted_at,omitempty"`
	ProcessedAt    *time.Time `grove:"processed_at"    bson:"processed_at,omitempty"`
	ErrorDetail    string     `grove:"error_detail"    bson:"error_detail"`
	StatusDetail   string     `grove:"status_detail"   bson:"status_detail"`
	Revision       int64      `grove:"revision"        bson:"revision"`
	CreatedAt      time.Time  `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"      bson:"updated_at"`
}

func toEventModel(evt *ledger.Event) *eventModel {
	return &eventModel{
		ID:             evt.ID.String(),
		EventType:      string(evt.Type),
		Subject:        evt.Subject,
		PayloadVersion: evt.PayloadVersion,
		Payload:        string(evt.Payload),
		Digest:         evt.Digest,
		Status:         string(evt.Status),
		Protocol:       evt.Protocol,
		SubmittedAt:    msTimePtr(evt.SubmittedAt),
		ProcessedAt:    msTimePtr(evt.ProcessedAt),
		ErrorDetail:    evt.ErrorDetail,
		StatusDetail:   evt.StatusDetail,
		CreatedAt:      msTime(evt.CreatedAt),
		UpdatedAt:      msTime(evt.UpdatedAt),
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

	ID           string    `grove:"id"            bson:"credential_id"`
	Kind         string    `grove:"kind,pk"       bson:"_id"`
	Subject      string    `grove:"subject"       bson:"subject"`
	Issuer       string    `grove:"issuer"        bson:"issuer"`
	SerialNumber string    `grove:"serial_number" bson:"serial_number"`
	ValidFrom    time.Time `grove:"valid_from"    bson:"valid_from"`
	ValidTo      time.Time `grove:"valid_to"      bson:"valid_to"`
	SigningKey   string    `grove:"signing_key"   bson:"signing_key"`
	CreatedAt    time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"    bson:"updated_at"`
}

func toCredentialModel(c *credential.Credential) *credentialModel {
	return &credentialModel{
		ID:           c.ID.String(),
		Kind:         string(c.Kind),
		Subject:      c.Subject,
		Issuer:       c.Issuer,
		SerialNumber: c.SerialNumber,
		ValidFrom:    msTime(c.ValidFrom),
		ValidTo:      msTime(c.ValidTo),
		SigningKey:   c.SigningKey,
		CreatedAt:    msTime(c.CreatedAt),
		UpdatedAt:    msTime(c.UpdatedAt),
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

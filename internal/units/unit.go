// Package units implements the Information Unit store: the persistent record
// of every inbound message and its pipeline state.
package units

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies the inbound channel.
type Source string

const (
	SourceEmail Source = "EMAIL"
	SourceSMS   Source = "SMS"
	SourceWeb   Source = "WEB"
	SourcePhone Source = "PHONE"
	SourceOther Source = "OTHER"
)

// Sources lists every accepted channel.
var Sources = []Source{SourceEmail, SourceSMS, SourceWeb, SourcePhone, SourceOther}

// ParseSource accepts a channel name in any case.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(Sources, src) {
		return "", ErrInvalidSource
	}
	return src, nil
}

// Attachment describes a file carried by a message. Pages is set for PDFs.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Pages       int    `json:"pages,omitempty"`
}

// Content is the normalized form of a message used by classification and analysis.
type Content struct {
	Subject     string            `json:"subject,omitempty"`
	Body        string            `json:"body"`
	Sender      string            `json:"sender,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

// Text returns subject and body joined for keyword matching.
func (c Content) Text() string {
	if c.Subject == "" {
		return c.Body
	}
	return c.Subject + "\n" + c.Body
}

// Classification is the category assigned to a unit.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Provider   string  `json:"provider"`
	Rationale  string  `json:"rationale,omitempty"`
}

// Analysis holds the structured extraction for a classified unit.
type Analysis struct {
	Urgency        int               `json:"urgency"`
	Sentiment      string            `json:"sentiment"`
	VIP            bool              `json:"vip"`
	Fields         map[string]string `json:"fields"`
	RequiredFields []string          `json:"required_fields"`
	PresentFields  []string          `json:"present_fields"`
	MissingFields  []string          `json:"missing_fields"`
	Conflicts      []string          `json:"conflicts"`
}

// Resolution records the outcome of a review.
type Resolution struct {
	Label      string            `json:"label,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Note       string            `json:"note,omitempty"`
	ResolvedBy string            `json:"resolved_by"`
	ResolvedAt time.Time         `json:"resolved_at"`
}

// Unit is one inbound message and its pipeline state.
// RawPayload and Checksum are fixed at creation.
type Unit struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       string          `json:"tenant_id"`
	ExternalID     string          `json:"external_id"`
	Source         Source          `json:"source"`
	Status         Status          `json:"status"`
	RawPayload     []byte          `json:"-"`
	Content        Content         `json:"content"`
	StorageKey     string          `json:"storage_key,omitempty"`
	Classification *Classification `json:"classification"`
	Analysis       *Analysis       `json:"analysis"`
	Resolution     *Resolution     `json:"resolution,omitempty"`
	Checksum       string          `json:"checksum"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ClosedAt       *time.Time      `json:"closed_at"`
}

// NewUnit builds a RECEIVED unit and seals its checksum.
func NewUnit(tenantID, externalID string, source Source, raw []byte, content Content, storageKey string) *Unit {
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &Unit{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ExternalID: externalID,
		Source:     source,
		Status:     StatusReceived,
		RawPayload: raw,
		Content:    content,
		StorageKey: storageKey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	u.Checksum = ComputeChecksum(u)
	return u
}

// ComputeChecksum hashes the immutable parts of a unit. Each part is length
// prefixed so that field boundaries cannot shift.
func ComputeChecksum(u *Unit) string {
	content, _ := json.Marshal(u.Content)

	h := sha256.New()
	for _, part := range [][]byte{
		[]byte(u.TenantID),
		[]byte(u.ExternalID),
		[]byte(u.Source),
		u.RawPayload,
		content,
	} {
		h.Write(binary.BigEndian.AppendUint64(nil, uint64(len(part))))
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadChecksum is the hex SHA-256 of raw, used for content-addressed archive keys.
func PayloadChecksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum returns ErrIntegrity when the stored checksum no longer matches.
func (u *Unit) VerifyChecksum() error {
	if u.Checksum != ComputeChecksum(u) {
		return ErrIntegrity
	}
	return nil
}

// Clone returns a deep copy.
func (u *Unit) Clone() *Unit {
	c := *u
	c.RawPayload = slices.Clone(u.RawPayload)
	c.Content.Fields = maps.Clone(u.Content.Fields)
	c.Content.Attachments = slices.Clone(u.Content.Attachments)
	if u.Classification != nil {
		cl := *u.Classification
		c.Classification = &cl
	}
	if u.Analysis != nil {
		a := *u.Analysis
		a.Fields = maps.Clone(u.Analysis.Fields)
		a.RequiredFields = slices.Clone(u.Analysis.RequiredFields)
		a.PresentFields = slices.Clone(u.Analysis.PresentFields)
		a.MissingFields = slices.Clone(u.Analysis.MissingFields)
		a.Conflicts = slices.Clone(u.Analysis.Conflicts)
		c.Analysis = &a
	}
	if u.Resolution != nil {
		r := *u.Resolution
		r.Fields = maps.Clone(u.Resolution.Fields)
		c.Resolution = &r
	}
	if u.ClosedAt != nil {
		t := *u.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

package channels

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/mobby57/memoLib-sub019/internal/units"
)

// Message is a webhook payload normalized to the canonical unit content.
type Message struct {
	ExternalID string
	Source     units.Source
	Content    units.Content
}

// EmailAttachment is an attachment carried inline in an email webhook.
type EmailAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// EmailPayload is the EMAIL channel shape.
type EmailPayload struct {
	MessageID   string            `json:"messageId"`
	From        string            `json:"from"`
	To          []string          `json:"to"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text"`
	HTML        string            `json:"html"`
	Attachments []EmailAttachment `json:"attachments"`
}

// SMSPayload is the SMS channel shape.
type SMSPayload struct {
	SID  string `json:"sid"`
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// WebPayload is the WEB form channel shape.
type WebPayload struct {
	SubmissionID string            `json:"submissionId"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Message      string            `json:"message"`
	Fields       map[string]string `json:"fields"`
}

// PhonePayload is the PHONE channel shape.
type PhonePayload struct {
	CallID          string `json:"callId"`
	Caller          string `json:"caller"`
	Transcript      string `json:"transcript"`
	DurationSeconds int    `json:"durationSeconds"`
}

// OtherPayload is the catch-all shape; Raw is kept as received.
type OtherPayload struct {
	ID  string          `json:"id"`
	Raw json.RawMessage `json:"raw"`
}

// Normalize decodes raw as the shape of source and maps it to a Message.
// headerID is used when the payload carries no id of its own.
func Normalize(source units.Source, raw []byte, headerID string) (*Message, error) {
	var (
		msg *Message
		id  string
		err error
	)

	switch source {
	case units.SourceEmail:
		msg, id, err = normalizeEmail(raw)
	case units.SourceSMS:
		msg, id, err = normalizeSMS(raw)
	case units.SourceWeb:
		msg, id, err = normalizeWeb(raw)
	case units.SourcePhone:
		msg, id, err = normalizePhone(raw)
	case units.SourceOther:
		msg, id, err = normalizeOther(raw)
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidPayload, source)
	}
	if err != nil {
		return nil, err
	}

	msg.Source = source
	msg.ExternalID = strings.TrimSpace(id)
	if msg.ExternalID == "" {
		msg.ExternalID = strings.TrimSpace(headerID)
	}
	if msg.ExternalID == "" {
		return nil, fmt.Errorf("%w: message id required", ErrInvalidPayload)
	}
	return msg, nil
}

func decode[T any](raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return v, nil
}

func normalizeEmail(raw []byte) (*Message, string, error) {
	p, err := decode[EmailPayload](raw)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(p.From) == "" {
		return nil, "", fmt.Errorf("%w: email from required", ErrInvalidPayload)
	}

	body := strings.TrimSpace(p.Text)
	if body == "" && p.HTML != "" {
		if body, err = htmlText(p.HTML); err != nil {
			return nil, "", fmt.Errorf("%w: html body: %w", ErrInvalidPayload, err)
		}
	}
	if body == "" && p.Subject == "" && len(p.Attachments) == 0 {
		return nil, "", fmt.Errorf("%w: empty email", ErrInvalidPayload)
	}

	msg := &Message{
		Content: units.Content{
			Subject: strings.TrimSpace(p.Subject),
			Body:    body,
			Sender:  strings.TrimSpace(p.From),
		},
	}
	if len(p.To) > 0 {
		msg.Content.Fields = map[string]string{"to": strings.Join(p.To, ", ")}
	}

	for i, a := range p.Attachments {
		data, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, "", fmt.Errorf("%w: attachment %d: %w", ErrInvalidPayload, i, err)
		}
		msg.Content.Attachments = append(msg.Content.Attachments, describeAttachment(a.Filename, a.ContentType, data))
	}

	return msg, p.MessageID, nil
}

func normalizeSMS(raw []byte) (*Message, string, error) {
	p, err := decode[SMSPayload](raw)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(p.From) == "" || strings.TrimSpace(p.Body) == "" {
		return nil, "", fmt.Errorf("%w: sms from and body required", ErrInvalidPayload)
	}

	msg := &Message{
		Content: units.Content{
			Body:   strings.TrimSpace(p.Body),
			Sender: strings.TrimSpace(p.From),
		},
	}
	if p.To != "" {
		msg.Content.Fields = map[string]string{"to": p.To}
	}
	return msg, p.SID, nil
}

func normalizeWeb(raw []byte) (*Message, string, error) {
	p, err := decode[WebPayload](raw)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(p.Message) == "" && len(p.Fields) == 0 {
		return nil, "", fmt.Errorf("%w: web message or fields required", ErrInvalidPayload)
	}

	fields := maps.Clone(p.Fields)
	if fields == nil {
		fields = make(map[string]string)
	}
	for k, v := range map[string]string{"name": p.Name, "email": p.Email, "phone": p.Phone} {
		if v = strings.TrimSpace(v); v != "" {
			fields[k] = v
		}
	}

	sender := firstNonEmpty(p.Email, p.Phone, p.Name)

	return &Message{
		Content: units.Content{
			Body:   strings.TrimSpace(p.Message),
			Sender: sender,
			Fields: fields,
		},
	}, p.SubmissionID, nil
}

func normalizePhone(raw []byte) (*Message, string, error) {
	p, err := decode[PhonePayload](raw)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(p.Caller) == "" {
		return nil, "", fmt.Errorf("%w: phone caller required", ErrInvalidPayload)
	}
	if p.DurationSeconds < 0 {
		return nil, "", fmt.Errorf("%w: negative call duration", ErrInvalidPayload)
	}

	return &Message{
		Content: units.Content{
			Body:   strings.TrimSpace(p.Transcript),
			Sender: strings.TrimSpace(p.Caller),
			Fields: map[string]string{"duration_seconds": strconv.Itoa(p.DurationSeconds)},
		},
	}, p.CallID, nil
}

func normalizeOther(raw []byte) (*Message, string, error) {
	p, err := decode[OtherPayload](raw)
	if err != nil {
		return nil, "", err
	}
	if len(p.Raw) == 0 || string(p.Raw) == "null" {
		return nil, "", fmt.Errorf("%w: raw required", ErrInvalidPayload)
	}

	var body string
	if err := json.Unmarshal(p.Raw, &body); err != nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, p.Raw); err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		body = buf.String()
	}

	return &Message{Content: units.Content{Body: strings.TrimSpace(body)}}, p.ID, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

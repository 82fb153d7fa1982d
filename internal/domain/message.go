package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AttachmentKind classifies an attachment for the client renderer.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentFile  AttachmentKind = "file"
	AttachmentOther AttachmentKind = "other"
)

// NormalizeAttachmentKind maps unknown kinds to AttachmentOther.
func NormalizeAttachmentKind(k AttachmentKind) AttachmentKind {
	switch k {
	case AttachmentImage, AttachmentVideo, AttachmentFile:
		return k
	default:
		return AttachmentOther
	}
}

// Attachment is a file reference carried by a message. The file itself
// lives in the upload store, outside this core.
type Attachment struct {
	URL  string         `json:"url"`
	Kind AttachmentKind `json:"type"`
}

// AttachmentList accepts either a JSON array of attachments or a single
// attachment object, which is coerced into a one-element list. Absent or
// null input yields an empty list.
type AttachmentList []Attachment

// UnmarshalJSON implements the single-object coercion.
func (a *AttachmentList) UnmarshalJSON(data []byte) error {
	var arr []Attachment
	if err := json.Unmarshal(data, &arr); err == nil {
		*a = arr
		return nil
	}

	var one Attachment
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*a = AttachmentList{one}
	return nil
}

// Scan implements sql.Scanner; attachments are stored as a JSON column.
func (a *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("AttachmentList: unsupported scan type")
	}
}

// Value implements driver.Valuer.
func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (AttachmentList) GormDataType() string {
	return "text"
}

// Message is an ordered record of text and attachments sent by one
// participant into a conversation. Text holds the ciphertext envelope when
// the message comes back from a write or a broadcast, and the decrypted
// text on the history read path. The only mutable part after creation is
// the reader set.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	SenderID       string         `json:"sender"`
	Text           string         `json:"text"`
	Attachments    AttachmentList `json:"attachments"`
	ProductRef     string         `json:"productRef,omitempty"`
	ReadBy         []string       `json:"readBy"`
	DeliveredAt    *time.Time     `json:"deliveredAt,omitempty"`
	SeenAt         *time.Time     `json:"seenAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

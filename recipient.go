package pstgo

import (
	"context"
	"strings"
)

// RecipientType tells whether a recipient is on the To, Cc or Bcc line.
type RecipientType int32

// Recipient types (TagRecipientType).
const (
	RecipientOriginator RecipientType = 0
	RecipientTo         RecipientType = 1
	RecipientCc         RecipientType = 2
	RecipientBcc        RecipientType = 3
)

func (t RecipientType) String() string {
	switch t {
	case RecipientOriginator:
		return "From"
	case RecipientTo:
		return "To"
	case RecipientCc:
		return "Cc"
	case RecipientBcc:
		return "Bcc"
	default:
		return "Unknown"
	}
}

// Recipient is one row of a message's recipient table. NID returns the
// row id.
type Recipient struct {
	element
}

// Email returns the address in its native address type.
func (r *Recipient) Email(ctx context.Context) string {
	return r.String(ctx, TagEmailAddress)
}

// AddressType returns the address type, e.g. "SMTP" or "EX".
func (r *Recipient) AddressType(ctx context.Context) string {
	return r.String(ctx, TagAddrType)
}

// SMTPAddress returns the SMTP address, falling back to Email for SMTP
// recipients.
func (r *Recipient) SMTPAddress(ctx context.Context) string {
	if s := r.String(ctx, TagSMTPAddress); s != "" {
		return s
	}
	if strings.EqualFold(r.AddressType(ctx), "SMTP") {
		return r.Email(ctx)
	}
	return ""
}

// Type returns the recipient type, masking the responsibility flag.
func (r *Recipient) Type(ctx context.Context) RecipientType {
	return RecipientType(r.Int32(ctx, TagRecipientType) & 0x0F)
}

// Package customer provides an explicit, tagged reference to a buyer
// identity so callers never rely on shape-sniffing a lookup argument.
package customer

import (
	"encoding/json"
	"fmt"
)

type refKind int

const (
	kindNone refKind = iota
	kindID
	kindEmail
	kindUserID
)

// Ref identifies a customer by exactly one of: customer id, email
// address, or linked user account id. The zero value means anonymous.
type Ref struct {
	kind   refKind
	id     int64
	email  string
	userID int64
}

// ByID references a customer by their customer record id.
func ByID(id int64) Ref {
	return Ref{kind: kindID, id: id}
}

// ByEmail references a customer by email address.
func ByEmail(email string) Ref {
	return Ref{kind: kindEmail, email: email}
}

// ByUserID references a customer through their linked user account.
func ByUserID(userID int64) Ref {
	return Ref{kind: kindUserID, userID: userID}
}

// IsZero reports whether the reference identifies anyone at all.
func (r Ref) IsZero() bool {
	return r.kind == kindNone
}

// CustomerID returns the customer id and whether this ref carries one.
func (r Ref) CustomerID() (int64, bool) {
	return r.id, r.kind == kindID
}

// Email returns the email and whether this ref carries one.
func (r Ref) Email() (string, bool) {
	return r.email, r.kind == kindEmail
}

// UserID returns the user id and whether this ref carries one.
func (r Ref) UserID() (int64, bool) {
	return r.userID, r.kind == kindUserID
}

type refJSON struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id,omitempty"`
	Email  string `json:"email,omitempty"`
	UserID int64  `json:"userId,omitempty"`
}

// MarshalJSON serialises the tagged variant for session storage.
func (r Ref) MarshalJSON() ([]byte, error) {
	out := refJSON{}
	switch r.kind {
	case kindID:
		out.Kind, out.ID = "id", r.id
	case kindEmail:
		out.Kind, out.Email = "email", r.email
	case kindUserID:
		out.Kind, out.UserID = "user", r.userID
	default:
		out.Kind = "none"
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the tagged variant.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var in refJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "id":
		*r = ByID(in.ID)
	case "email":
		*r = ByEmail(in.Email)
	case "user":
		*r = ByUserID(in.UserID)
	default:
		*r = Ref{}
	}
	return nil
}

// String renders the reference for log fields.
func (r Ref) String() string {
	switch r.kind {
	case kindID:
		return fmt.Sprintf("customer:%d", r.id)
	case kindEmail:
		return "email:" + r.email
	case kindUserID:
		return fmt.Sprintf("user:%d", r.userID)
	default:
		return "anonymous"
	}
}

package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// User is a record held by the remote users API.
type User struct {
	ID       int      `json:"id,omitempty"`
	Name     string   `json:"name"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Website  string   `json:"website,omitempty"`
	Address  *Address `json:"address,omitempty"`
	Company  *Company `json:"company,omitempty"`
}

// Address is the structured address returned by the users API.
// A bare JSON string (as posted by the create flow) decodes into Street.
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite,omitempty"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode,omitempty"`
	Geo     *Geo   `json:"geo,omitempty"`
}

type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// Company is the structured company value. A bare JSON string decodes into Name.
type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase,omitempty"`
	BS          string `json:"bs,omitempty"`
}

func (a *Address) UnmarshalJSON(b []byte) error {
	if s, ok := bareString(b); ok {
		*a = Address{Street: s}
		return nil
	}
	type plain Address
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = Address(p)
	return nil
}

func (c *Company) UnmarshalJSON(b []byte) error {
	if s, ok := bareString(b); ok {
		*c = Company{Name: s}
		return nil
	}
	type plain Company
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = Company(p)
	return nil
}

func bareString(b []byte) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false
	}
	return s, true
}

// Line renders the address as "street, city, zipcode".
func (a *Address) Line() string {
	if a == nil {
		return ""
	}
	return strings.Join([]string{a.Street, a.City, a.Zipcode}, ", ")
}

// Clone returns a deep copy so a working copy never aliases the canonical record.
func (u User) Clone() User {
	if u.Address != nil {
		addr := *u.Address
		if addr.Geo != nil {
			geo := *addr.Geo
			addr.Geo = &geo
		}
		u.Address = &addr
	}
	if u.Company != nil {
		company := *u.Company
		u.Company = &company
	}
	return u
}

// Draft is the form state of a create or edit dialog, as typed so far.
// Address is the free-form line used by the create flow; Street, City and
// Zipcode are the structured fields used by the edit flow.
type Draft struct {
	Name     string `form:"name"`
	Username string `form:"username"`
	Email    string `form:"email"`
	Phone    string `form:"phone"`
	Website  string `form:"website"`
	Address  string `form:"address"`
	Street   string `form:"street"`
	City     string `form:"city"`
	Zipcode  string `form:"zipcode"`
	Company  string `form:"company"`
}

// DraftFromUser seeds an edit draft from a record.
func DraftFromUser(u User) Draft {
	d := Draft{
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
		Website:  u.Website,
	}
	if u.Address != nil {
		d.Street = u.Address.Street
		d.City = u.Address.City
		d.Zipcode = u.Address.Zipcode
	}
	if u.Company != nil {
		d.Company = u.Company.Name
	}
	return d
}

// ApplyTo merges the edit draft into a record. The id and fields the edit
// form does not carry (username, suite, geo, catch phrase) are left alone.
func (d Draft) ApplyTo(u User) User {
	u = u.Clone()
	u.Name = d.Name
	u.Email = d.Email
	u.Phone = d.Phone
	u.Website = d.Website
	if u.Address == nil {
		u.Address = &Address{}
	}
	u.Address.Street = d.Street
	u.Address.City = d.City
	u.Address.Zipcode = d.Zipcode
	switch {
	case d.Company != "" && u.Company == nil:
		u.Company = &Company{Name: d.Company}
	case u.Company != nil:
		u.Company.Name = d.Company
	}
	return u
}

// CreateUserRequest is the body posted by the create flow. Address and
// company are free-form strings on this path.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Company  string `json:"company"`
	Website  string `json:"website"`
}

// NewCreateUserRequest builds the create payload from a draft.
func NewCreateUserRequest(d Draft) CreateUserRequest {
	return CreateUserRequest{
		Name:     d.Name,
		Username: d.Username,
		Email:    d.Email,
		Phone:    d.Phone,
		Address:  d.Address,
		Company:  d.Company,
		Website:  d.Website,
	}
}

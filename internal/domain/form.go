package domain

// UserField is the closed set of registrant contact fields a custom
// registration form may map onto. Field access goes through an explicit
// dispatch table resolved at definition time, so an unknown field name is a
// validation error rather than a silent no-op.
type UserField string

const (
	FieldFirstName   UserField = "first_name"
	FieldLastName    UserField = "last_name"
	FieldEmail       UserField = "email"
	FieldPhone       UserField = "phone"
	FieldCompanyName UserField = "company_name"
	FieldAddress     UserField = "address"
	FieldCity        UserField = "city"
	FieldState       UserField = "state"
	FieldZip         UserField = "zip"
	FieldCountry     UserField = "country"
)

type fieldAccessor struct {
	get func(*Registrant) string
	set func(*Registrant, string)
}

var userFields = map[UserField]fieldAccessor{
	FieldFirstName: {
		get: func(r *Registrant) string { return r.FirstName },
		set: func(r *Registrant, v string) { r.FirstName = v },
	},
	FieldLastName: {
		get: func(r *Registrant) string { return r.LastName },
		set: func(r *Registrant, v string) { r.LastName = v },
	},
	FieldEmail: {
		get: func(r *Registrant) string { return r.Email },
		set: func(r *Registrant, v string) { r.Email = v },
	},
	FieldPhone: {
		get: func(r *Registrant) string { return r.Phone },
		set: func(r *Registrant, v string) { r.Phone = v },
	},
	FieldCompanyName: {
		get: func(r *Registrant) string { return r.CompanyName },
		set: func(r *Registrant, v string) { r.CompanyName = v },
	},
	FieldAddress: {
		get: func(r *Registrant) string { return r.Address },
		set: func(r *Registrant, v string) { r.Address = v },
	},
	FieldCity: {
		get: func(r *Registrant) string { return r.City },
		set: func(r *Registrant, v string) { r.City = v },
	},
	FieldState: {
		get: func(r *Registrant) string { return r.State },
		set: func(r *Registrant, v string) { r.State = v },
	},
	FieldZip: {
		get: func(r *Registrant) string { return r.Zip },
		set: func(r *Registrant, v string) { r.Zip = v },
	},
	FieldCountry: {
		get: func(r *Registrant) string { return r.Country },
		set: func(r *Registrant, v string) { r.Country = v },
	},
}

// Valid reports whether the field is one of the known user fields.
func (f UserField) Valid() bool {
	_, ok := userFields[f]
	return ok
}

// ApplyUserField sets a mapped custom-form value on the registrant. Returns
// false for unknown fields.
func ApplyUserField(r *Registrant, field UserField, value string) bool {
	acc, ok := userFields[field]
	if !ok {
		return false
	}
	acc.set(r, value)
	return true
}

// UserFieldValue reads a mapped field from the registrant. Returns false for
// unknown fields.
func UserFieldValue(r *Registrant, field UserField) (string, bool) {
	acc, ok := userFields[field]
	if !ok {
		return "", false
	}
	return acc.get(r), true
}

package outline

import "encoding/json"

// KeyParams holds the optional attributes for create and update access key
// calls. Nil fields are omitted from the serialized body entirely; they are
// never sent as null.
type KeyParams struct {
	Name           *string
	Password       *string
	Method         *string
	DataLimitBytes *int64
}

// String returns a pointer to v, for populating KeyParams fields inline.
func String(v string) *string { return &v }

// Int64 returns a pointer to v, for populating KeyParams fields inline.
func Int64(v int64) *int64 { return &v }

type keyBody struct {
	Name     *string    `json:"name,omitempty"`
	Password *string    `json:"password,omitempty"`
	Method   *string    `json:"method,omitempty"`
	Limit    *DataLimit `json:"limit,omitempty"`
}

// body serializes the present fields. A params value with nothing set
// serializes to an empty JSON object.
func (p KeyParams) body() ([]byte, error) {
	b := keyBody{
		Name:     p.Name,
		Password: p.Password,
		Method:   p.Method,
	}
	if p.DataLimitBytes != nil {
		b.Limit = &DataLimit{Bytes: *p.DataLimitBytes}
	}
	return json.Marshal(b)
}

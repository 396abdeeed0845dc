package outline

import (
	"encoding/json"
	"fmt"
)

// AccessKey is the key record the management API returns.
type AccessKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Password  string     `json:"password,omitempty"`
	Port      int        `json:"port,omitempty"`
	Method    string     `json:"method,omitempty"`
	AccessURL string     `json:"accessUrl,omitempty"`
	Limit     *DataLimit `json:"limit,omitempty"`
}

// DataLimit caps the bytes an access key may transfer.
type DataLimit struct {
	Bytes int64 `json:"bytes"`
}

// ParseAccessKey decodes a single key object.
func ParseAccessKey(raw []byte) (AccessKey, error) {
	var key AccessKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return AccessKey{}, fmt.Errorf("decode access key: %w", err)
	}
	return key, nil
}

// ParseAccessKeys decodes the list-keys collection shape
// {"accessKeys": [...]}.
func ParseAccessKeys(raw []byte) ([]AccessKey, error) {
	var wrapper struct {
		AccessKeys []AccessKey `json:"accessKeys"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decode access key collection: %w", err)
	}
	return wrapper.AccessKeys, nil
}

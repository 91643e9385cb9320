package sqlite

import (
	"database/sql"
	"encoding/json"
	"strings"

	"modbusmgr/internal/domain"
)

// likePattern turns an identifier pattern like "modbus.*" into a LIKE
// pattern. '\' is the escape character.
func likePattern(pattern string) string {
	prefix, wildcard := strings.CutSuffix(pattern, "*")

	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	like := r.Replace(prefix)
	if wildcard {
		like += "%"
	}
	return like
}

// marshalPeripheral stores the record's serialized form
func marshalPeripheral(p domain.Peripheral) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalPeripheral restores a stored record. The slave id is not part of
// the serialized form and is read back from its own column.
func unmarshalPeripheral(payload string, slaveID sql.NullInt64) (domain.Peripheral, error) {
	var p domain.Peripheral
	if payload == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return p, err
	}
	if slaveID.Valid {
		p.SlaveID = int(slaveID.Int64)
	}
	return p, nil
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

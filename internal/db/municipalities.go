package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Municipality is one entry of the INE municipality list. Code is the
// five-digit CPRO+CMUN identifier AEMET uses.
type Municipality struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Province string `json:"province,omitempty"`
}

const defaultSearchLimit = 10

// UpsertMunicipalities inserts or replaces municipalities in one transaction.
func (d *DB) UpsertMunicipalities(ms []Municipality) (err error) {
	if d == nil || d.DB == nil {
		return errNotInitialized
	}

	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
INSERT INTO municipalities (code, name, name_key, province) VALUES (?, ?, ?, ?)
ON CONFLICT(code) DO UPDATE SET name = excluded.name, name_key = excluded.name_key, province = excluded.province`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range ms {
		if m.Code == "" || m.Name == "" {
			continue
		}
		if _, err = stmt.Exec(m.Code, m.Name, foldKey(m.Name), m.Province); err != nil {
			return fmt.Errorf("insert %s: %w", m.Code, err)
		}
	}

	return tx.Commit()
}

// SearchMunicipalities returns municipalities whose name has a word
// starting with query, ignoring case and accents. Numeric queries match
// on code prefix.
func (d *DB) SearchMunicipalities(query string, limit int) ([]Municipality, error) {
	if d == nil || d.DB == nil {
		return nil, errNotInitialized
	}

	key := foldKey(query)
	if key == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	pattern := escapeLike(key)
	rows, err := d.Query(`
SELECT code, name, province FROM municipalities
WHERE name_key LIKE ? ESCAPE '\' OR name_key LIKE ? ESCAPE '\' OR code LIKE ? ESCAPE '\'
ORDER BY (name_key = ?) DESC, length(name), name
LIMIT ?`,
		pattern+"%", "% "+pattern+"%", pattern+"%", key, limit)
	if err != nil {
		return nil, fmt.Errorf("search municipalities %q: %w", query, err)
	}
	defer rows.Close()

	var out []Municipality
	for rows.Next() {
		var m Municipality
		if err := rows.Scan(&m.Code, &m.Name, &m.Province); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMunicipality returns the municipality with code, or nil if unknown.
func (d *DB) GetMunicipality(code string) (*Municipality, error) {
	if d == nil || d.DB == nil {
		return nil, errNotInitialized
	}

	var m Municipality
	err := d.QueryRow(`SELECT code, name, province FROM municipalities WHERE code = ?`, code).
		Scan(&m.Code, &m.Name, &m.Province)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// foldKey lower-cases s, strips accents and collapses whitespace, so
// "  Móstoles " and "mostoles" compare equal.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

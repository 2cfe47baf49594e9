package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for testing
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every pooled connection would get its own :memory: database
	db.SetMaxOpenConns(1)

	// Initialize schema
	if err := initSchema(db); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}

	testDB := &DB{db}
	err = testDB.UpsertMunicipalities([]Municipality{
		{Code: "28065", Name: "Getafe", Province: "Madrid"},
		{Code: "28092", Name: "Móstoles", Province: "Madrid"},
		{Code: "28079", Name: "Madrid", Province: "Madrid"},
		{Code: "02003", Name: "Albacete", Province: "Albacete"},
		{Code: "38038", Name: "Santa Cruz de Tenerife", Province: "Santa Cruz de Tenerife"},
		{Code: "26089", Name: "Logroño", Province: "La Rioja"},
		{Code: "99001", Name: "Villa_100%", Province: "Test"},
	})
	if err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}

	return testDB
}

func TestSearchMunicipalities(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	tests := []struct {
		name      string
		query     string
		wantCodes []string
	}{
		{
			name:      "prefix",
			query:     "Get",
			wantCodes: []string{"28065"},
		},
		{
			name:      "case insensitive",
			query:     "ALBA",
			wantCodes: []string{"02003"},
		},
		{
			name:      "accent insensitive",
			query:     "mostoles",
			wantCodes: []string{"28092"},
		},
		{
			name:      "accented query",
			query:     "Logroño",
			wantCodes: []string{"26089"},
		},
		{
			name:      "inner word",
			query:     "tenerife",
			wantCodes: []string{"38038"},
		},
		{
			name:      "exact match first",
			query:     "madrid",
			wantCodes: []string{"28079"},
		},
		{
			name:      "code prefix",
			query:     "2806",
			wantCodes: []string{"28065"},
		},
		{
			name:      "empty query",
			query:     "",
			wantCodes: nil,
		},
		{
			name:      "whitespace only",
			query:     "   ",
			wantCodes: nil,
		},
		{
			name:      "percent is literal",
			query:     "%",
			wantCodes: nil,
		},
		{
			name:      "underscore is literal",
			query:     "Villa_",
			wantCodes: []string{"99001"},
		},
		{
			name:      "no results",
			query:     "xyz123notfound",
			wantCodes: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, err := testDB.SearchMunicipalities(tt.query, 0)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if len(ms) != len(tt.wantCodes) {
				t.Fatalf("Expected %d results, got %d: %+v", len(tt.wantCodes), len(ms), ms)
			}
			for i, code := range tt.wantCodes {
				if ms[i].Code != code {
					t.Errorf("result %d: expected %s, got %s", i, code, ms[i].Code)
				}
			}
		})
	}
}

func TestSearchMunicipalitiesLimit(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	ms, err := testDB.SearchMunicipalities("2", 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(ms) != 2 {
		t.Errorf("Expected 2 results, got %d", len(ms))
	}
}

func TestUpsertMunicipalitiesReplaces(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	err := testDB.UpsertMunicipalities([]Municipality{
		{Code: "28065", Name: "Getafe (renamed)", Province: "Comunidad de Madrid"},
		{Code: "", Name: "skipped"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	m, err := testDB.GetMunicipality("28065")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m == nil || m.Name != "Getafe (renamed)" || m.Province != "Comunidad de Madrid" {
		t.Errorf("Expected updated row, got %+v", m)
	}

	var count int
	if err := testDB.QueryRow(`SELECT COUNT(*) FROM municipalities`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 7 {
		t.Errorf("Expected 7 rows, got %d", count)
	}
}

func TestGetMunicipalityUnknown(t *testing.T) {
	testDB := setupTestDB(t)
	defer testDB.Close()

	m, err := testDB.GetMunicipality("00000")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("Expected nil, got %+v", m)
	}
}

func TestFoldKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Móstoles", "mostoles"},
		{"  Santa   Cruz ", "santa cruz"},
		{"Logroño", "logrono"},
		{"L'Hospitalet de Llobregat", "l'hospitalet de llobregat"},
		{"Àger", "ager"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := foldKey(tt.input); got != tt.expected {
				t.Errorf("foldKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewDB(t *testing.T) {
	// Test with a temporary database file
	tmpFile := filepath.Join(t.TempDir(), "test_mitiempo.db")

	db, err := NewDB(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create new DB: %v", err)
	}
	defer db.Close()

	// Verify we can ping it
	if err := db.Ping(); err != nil {
		t.Errorf("Failed to ping DB: %v", err)
	}

	if err := db.UpsertMunicipalities([]Municipality{{Code: "28065", Name: "Getafe"}}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
}

func TestNewDBEmptyPath(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "ignored.db"))

	if db, err := NewDB(""); err == nil {
		db.Close()
		t.Error("Expected error for empty path, got nil")
	}
}

func TestNilDB(t *testing.T) {
	var db *DB
	if _, err := db.SearchMunicipalities("Getafe", 5); err == nil || err.Error() != "database not initialized" {
		t.Errorf("Expected 'database not initialized', got %v", err)
	}
	if err := db.UpsertMunicipalities(nil); err == nil {
		t.Error("Expected error for nil database, got nil")
	}
	if _, err := db.GetMunicipality("28065"); err == nil {
		t.Error("Expected error for nil database, got nil")
	}
}

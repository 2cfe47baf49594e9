package main

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestParseMunicipalities(t *testing.T) {
	input := `Relación de municipios y sus códigos por provincias;;;;
CODAUTO;CPRO;CMUN;DC;NOMBRE
13;28;65;6;Getafe
8;2;3;9;Albacete
13;28;127;3;Rozas de Madrid, Las
9;08;101;1;Hospitalet de Llobregat, L'
13;xx;065;6;Broken
13;28;066;;
`

	ms, err := parseMunicipalities(strings.NewReader(input), ';')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []struct {
		code, name, province string
	}{
		{"28065", "Getafe", "Madrid"},
		{"02003", "Albacete", "Albacete"},
		{"28127", "Las Rozas de Madrid", "Madrid"},
		{"08101", "L'Hospitalet de Llobregat", "Barcelona"},
	}
	if len(ms) != len(expected) {
		t.Fatalf("expected %d rows, got %d: %+v", len(expected), len(ms), ms)
	}
	for i, e := range expected {
		if ms[i].Code != e.code || ms[i].Name != e.name || ms[i].Province != e.province {
			t.Errorf("row %d = %+v, want %+v", i, ms[i], e)
		}
	}
}

func TestParseMunicipalitiesProvinceColumn(t *testing.T) {
	input := "cpro,cmun,nombre,provincia\n28,065,Getafe,Comunidad de Madrid\n"

	ms, err := parseMunicipalities(strings.NewReader(input), ',')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) != 1 || ms[0].Province != "Comunidad de Madrid" {
		t.Errorf("expected province column to win, got %+v", ms)
	}
}

func TestParseMunicipalitiesLatin1(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String("CPRO;CMUN;NOMBRE\n28;092;Móstoles\n")
	if err != nil {
		t.Fatal(err)
	}

	r := charmap.ISO8859_1.NewDecoder().Reader(strings.NewReader(encoded))
	ms, err := parseMunicipalities(r, ';')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) != 1 || ms[0].Name != "Móstoles" {
		t.Errorf("unexpected rows %+v", ms)
	}
}

func TestParseMunicipalitiesNoHeader(t *testing.T) {
	if _, err := parseMunicipalities(strings.NewReader("a;b;c\n1;2;3\n"), ';'); err == nil {
		t.Error("expected error when the header is missing")
	}
}

func TestMunicipalityCode(t *testing.T) {
	tests := []struct {
		cpro, cmun string
		want       string
		ok         bool
	}{
		{"28", "065", "28065", true},
		{"2", "3", "02003", true},
		{"28", "1000", "", false},
		{"", "065", "", false},
		{"2a", "065", "", false},
	}

	for _, tt := range tests {
		got, ok := municipalityCode(tt.cpro, tt.cmun)
		if got != tt.want || ok != tt.ok {
			t.Errorf("municipalityCode(%q, %q) = %q, %v; want %q, %v", tt.cpro, tt.cmun, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"Rozas de Madrid, Las":        "Las Rozas de Madrid",
		"Coruña, A":                   "A Coruña",
		"Hospitalet de Llobregat, L'": "L'Hospitalet de Llobregat",
		"Getafe":                      "Getafe",
		"Madrid, Comunidad":           "Madrid, Comunidad",
	}

	for in, want := range tests {
		if got := cleanName(in); got != want {
			t.Errorf("cleanName(%q) = %q, want %q", in, got, want)
		}
	}
}

package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/swelljoe/mitiempo/internal/config"
	"github.com/swelljoe/mitiempo/internal/db"
)

// INE publishes the municipality list as a spreadsheet; export it to CSV
// keeping the CPRO, CMUN and NOMBRE columns.
const defaultSource = "data/municipios.csv"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	config.LoadDotEnv()

	source := flag.String("src", defaultSource, "CSV file path or http(s) URL")
	dbPath := flag.String("db", "", "SQLite database path (default $DATABASE_PATH or mitiempo.db)")
	delim := flag.String("delim", ";", "Field delimiter")
	latin1 := flag.Bool("latin1", false, "Input is ISO-8859-1 encoded")
	flag.Parse()

	comma, _ := utf8.DecodeRuneInString(*delim)
	if comma == utf8.RuneError {
		return fmt.Errorf("invalid delimiter %q", *delim)
	}

	if *dbPath == "" {
		*dbPath = config.DatabasePath()
	}

	// Initialize DB
	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer database.Close()

	rc, err := openSource(*source)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", *source, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if *latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(rc)
	}

	fmt.Printf("Processing %s...\n", *source)
	ms, err := parseMunicipalities(r, comma)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", *source, err)
	}

	if err := database.UpsertMunicipalities(ms); err != nil {
		return fmt.Errorf("failed to import municipalities: %w", err)
	}
	fmt.Printf("Finished importing %d municipalities.\n", len(ms))

	return nil
}

func openSource(src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		fmt.Printf("Downloading %s...\n", src)
		resp, err := http.Get(src)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("bad status: %s", resp.Status)
		}
		return resp.Body, nil
	}
	return os.Open(src)
}

// parseMunicipalities reads an INE municipality CSV. Columns are located
// by header name; rows that do not yield a five-digit code are skipped.
func parseMunicipalities(r io.Reader, comma rune) ([]db.Municipality, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	// The INE export has a title row before the header
	var cols map[string]int
	for cols == nil {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, errors.New("header with CPRO, CMUN and NOMBRE not found")
		}
		if err != nil {
			return nil, err
		}
		cols = headerColumns(record)
	}

	var out []db.Municipality
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed lines
		}

		cpro := field(record, cols["CPRO"])
		cmun := field(record, cols["CMUN"])
		name := field(record, cols["NOMBRE"])

		code, ok := municipalityCode(cpro, cmun)
		if !ok || name == "" {
			log.Printf("Skipping row %v", record)
			continue
		}

		province := provinceNames[code[:2]]
		if i, ok := cols["PROVINCIA"]; ok && field(record, i) != "" {
			province = field(record, i)
		}

		out = append(out, db.Municipality{
			Code:     code,
			Name:     cleanName(name),
			Province: province,
		})
	}

	return out, nil
}

func headerColumns(record []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range record {
		h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[h] = i
	}
	for _, required := range []string{"CPRO", "CMUN", "NOMBRE"} {
		if _, ok := cols[required]; !ok {
			return nil
		}
	}
	return cols
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// municipalityCode builds the five-digit AEMET code from the INE province
// and municipality numbers, restoring leading zeros lost by spreadsheets.
func municipalityCode(cpro, cmun string) (string, bool) {
	if !isDigits(cpro) || !isDigits(cmun) || len(cpro) > 2 || len(cmun) > 3 {
		return "", false
	}
	return leftPad(cpro, 2) + leftPad(cmun, 3), true
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// cleanName turns INE's "Rozas de Madrid, Las" into "Las Rozas de Madrid".
func cleanName(name string) string {
	if i := strings.LastIndex(name, ", "); i > 0 {
		article := name[i+2:]
		switch strings.ToLower(article) {
		case "el", "la", "los", "las", "l'", "els", "les", "o", "a", "os", "as", "lo":
			if strings.HasSuffix(article, "'") {
				return article + name[:i]
			}
			return article + " " + name[:i]
		}
	}
	return name
}

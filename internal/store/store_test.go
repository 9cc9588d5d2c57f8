package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func openStores(t *testing.T) map[string]AccessStore {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]AccessStore{}
	for driver, file := range map[string]string{"sqlite": "backend.db", "bolt": "backend.bolt"} {
		s, err := Open(driver, filepath.Join(dir, file))
		if err != nil {
			t.Fatalf("open %s: %v", driver, err)
		}
		t.Cleanup(func() { s.Close() })
		stores[driver] = s
	}
	return stores
}

func TestAccessRecordLookup(t *testing.T) {
	ctx := context.Background()
	for driver, s := range openStores(t) {
		t.Run(driver, func(t *testing.T) {
			g := NewWithT(t)

			n, err := s.UpsertAccessRecords(ctx, []AccessRecord{
				{AccessCode: "42", Company: "Acme", Position: "Engineer"},
				{AccessCode: "7", Company: "Globex", Position: "SRE", Question: "Fix the pager", Doc: "runbook.md"},
			})
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(n).To(Equal(2))

			rec, err := s.GetAccessRecord(ctx, "42")
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(rec).To(Equal(&AccessRecord{AccessCode: "42", Company: "Acme", Position: "Engineer"}))

			rec, err = s.GetAccessRecord(ctx, "7")
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(rec.Question).To(Equal("Fix the pager"))
			g.Expect(rec.Doc).To(Equal("runbook.md"))

			rec, err = s.GetAccessRecord(ctx, "999")
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(rec).To(BeNil())
		})
	}
}

func TestUpsertReplacesExistingCode(t *testing.T) {
	ctx := context.Background()
	for driver, s := range openStores(t) {
		t.Run(driver, func(t *testing.T) {
			g := NewWithT(t)

			_, err := s.UpsertAccessRecords(ctx, []AccessRecord{{AccessCode: "42", Company: "Acme", Position: "Engineer"}})
			g.Expect(err).NotTo(HaveOccurred())
			_, err = s.UpsertAccessRecords(ctx, []AccessRecord{{AccessCode: "42", Company: "Acme", Position: "Manager"}})
			g.Expect(err).NotTo(HaveOccurred())

			rec, err := s.GetAccessRecord(ctx, "42")
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(rec.Position).To(Equal("Manager"))
		})
	}
}

func TestSQLiteLookupIsNotInjectable(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "backend.db"))
	g.Expect(err).NotTo(HaveOccurred())
	defer s.Close()

	_, err = s.UpsertAccessRecords(ctx, []AccessRecord{{AccessCode: "42", Company: "Acme", Position: "Engineer"}})
	g.Expect(err).NotTo(HaveOccurred())

	rec, err := s.GetAccessRecord(ctx, "' OR '1'='1")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(rec).To(BeNil())
}

func TestSQLiteOpensLegacyDatabase(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "backend.db")

	legacy, err := sql.Open("sqlite3", path)
	g.Expect(err).NotTo(HaveOccurred())
	_, err = legacy.Exec(`CREATE TABLE company_position (accessCode INTEGER, company TEXT, position TEXT);
		INSERT INTO company_position VALUES (42, 'Acme', 'Engineer');`)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(legacy.Close()).To(Succeed())

	s, err := NewSQLiteStore(path)
	g.Expect(err).NotTo(HaveOccurred())
	defer s.Close()

	rec, err := s.GetAccessRecord(context.Background(), "42")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(rec).NotTo(BeNil())
	g.Expect(rec.Company).To(Equal("Acme"))
	g.Expect(rec.AccessCode).To(Equal("42"))
}

func TestSQLiteProvisionsLegacyDatabase(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "backend.db")

	legacy, err := sql.Open("sqlite3", path)
	g.Expect(err).NotTo(HaveOccurred())
	_, err = legacy.Exec(`CREATE TABLE company_position (accessCode INTEGER, company TEXT, position TEXT);
		INSERT INTO company_position VALUES (42, 'Acme', 'Engineer');`)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(legacy.Close()).To(Succeed())

	s, err := NewSQLiteStore(path)
	g.Expect(err).NotTo(HaveOccurred())
	defer s.Close()

	n, err := s.UpsertAccessRecords(ctx, []AccessRecord{
		{AccessCode: "42", Company: "Initech", Position: "Analyst", Question: "Write a report"},
		{AccessCode: "43", Company: "Globex", Position: "SRE"},
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(n).To(Equal(2))

	rec, err := s.GetAccessRecord(ctx, "42")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(rec).NotTo(BeNil())
	g.Expect(rec.Company).To(Equal("Initech"))
	g.Expect(rec.Question).To(Equal("Write a report"))

	var rows int
	g.Expect(s.db.QueryRow(`SELECT COUNT(*) FROM company_position`).Scan(&rows)).To(Succeed())
	g.Expect(rows).To(Equal(2))
}

func TestParseProvisionTable(t *testing.T) {
	g := NewWithT(t)
	table := `
| Access Code | Company | Position | Question | Doc |
|-------------|---------|----------|----------|-----|
| 42 | Acme | Engineer | Add signup | auth.md |
|    | Globex | SRE | | |
this line is ignored
`
	recs, err := ParseProvisionTable(table)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(recs).To(HaveLen(2))
	g.Expect(recs[0]).To(Equal(AccessRecord{AccessCode: "42", Company: "Acme", Position: "Engineer", Question: "Add signup", Doc: "auth.md"}))
	g.Expect(recs[1].Company).To(Equal("Globex"))
	g.Expect(recs[1].AccessCode).To(HaveLen(36))
}

func TestParseProvisionTableErrors(t *testing.T) {
	g := NewWithT(t)

	_, err := ParseProvisionTable("no table here")
	g.Expect(err).To(MatchError(ContainSubstring("no table header")))

	_, err = ParseProvisionTable("| access_code | company |\n|---|---|\n| 1 | Acme |")
	g.Expect(err).To(MatchError(ContainSubstring(`"position"`)))

	_, err = ParseProvisionTable("| access_code | company | position |\n| 1 | Acme | |")
	g.Expect(err).To(MatchError(ContainSubstring("line 2")))
}

func TestProvisionFromFile(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "codes.md")
	g.Expect(os.WriteFile(path, []byte("| accessCode | company | position |\n|---|---|---|\n| 42 | Acme | Engineer |\n"), 0o600)).To(Succeed())

	s, err := NewBoltStore(filepath.Join(dir, "access.bolt"))
	g.Expect(err).NotTo(HaveOccurred())
	defer s.Close()

	n, err := ProvisionFromFile(ctx, s, path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(n).To(Equal(1))

	rec, err := s.GetAccessRecord(ctx, "42")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(rec.Company).To(Equal("Acme"))
}

package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromDir(t *testing.T) {
	// Use the actual catalog directory
	catalogDir := filepath.Join("..", "..", "catalog")

	if _, err := os.Stat(catalogDir); os.IsNotExist(err) {
		t.Skip("catalog directory not found, skipping")
	}

	loader := NewLoader()
	if err := loader.LoadFromDir(catalogDir); err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	domains := loader.ListDomains()
	if len(domains) < 2 {
		t.Errorf("expected at least 2 domains, got %d", len(domains))
	}

	sales := loader.GetDomain("sales")
	if sales == nil {
		t.Fatal("sales domain not found")
	}
	if sales.Name != "Sales" {
		t.Errorf("expected domain name 'Sales', got %q", sales.Name)
	}
	if sales.TemplatesCount < 2 {
		t.Errorf("expected at least 2 sales templates, got %d", sales.TemplatesCount)
	}

	objections := loader.GetTemplate("sales/objection-handling")
	if objections == nil {
		t.Fatal("sales/objection-handling template not found")
	}
	if objections.Competency != "sales-conversations" {
		t.Errorf("unexpected competency: %s", objections.Competency)
	}
	if len(objections.SubCompetencies) != 2 {
		t.Errorf("expected 2 sub-competencies, got %d", len(objections.SubCompetencies))
	}
	if objections.Defaults.TimeLimitS != 90 {
		t.Errorf("expected default time limit 90, got %v", objections.Defaults.TimeLimitS)
	}
	if objections.Testing == nil || objections.Testing.AccuracyThreshold != 0.92 {
		t.Error("expected testing-mode overrides to be loaded")
	}

	templates := loader.ListTemplates("sales")
	if len(templates) < 2 {
		t.Errorf("expected at least 2 templates in sales, got %d", len(templates))
	}

	triage := loader.GetTemplate("support/ticket-triage")
	if triage == nil {
		t.Fatal("support/ticket-triage template not found")
	}
	if triage.Defaults.SessionsRequired != 1 {
		t.Errorf("expected sessions_required 1, got %d", triage.Defaults.SessionsRequired)
	}
}

func TestLoadTemplateDefaults(t *testing.T) {
	dir := t.TempDir()
	domainDir := filepath.Join(dir, "ops")
	tmplDir := filepath.Join(domainDir, "bare")
	if err := os.MkdirAll(tmplDir, 0o755); err != nil {
		t.Fatal(err)
	}

	domainYaml := "name: Ops\ndescription: test\n"
	if err := os.WriteFile(filepath.Join(domainDir, "domain.yaml"), []byte(domainYaml), 0o644); err != nil {
		t.Fatal(err)
	}
	// Template with no thresholds: defaults must be applied
	tmplYaml := "name: Bare\ncompetency: ops-basics\n"
	if err := os.WriteFile(filepath.Join(tmplDir, "template.yaml"), []byte(tmplYaml), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader()
	if err := loader.LoadFromDir(dir); err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	tmpl := loader.GetTemplate("ops/bare")
	if tmpl == nil {
		t.Fatal("ops/bare template not found")
	}
	if tmpl.Defaults.TimeLimitS != 90 || tmpl.Defaults.AccuracyThreshold != 0.9 ||
		tmpl.Defaults.EdgeThreshold != 0.8 || tmpl.Defaults.SessionsRequired != 1 {
		t.Errorf("baseline defaults not applied: %+v", tmpl.Defaults)
	}
}

func TestLoadTemplateMissingCompetency(t *testing.T) {
	dir := t.TempDir()
	tmplDir := filepath.Join(dir, "ops", "broken")
	if err := os.MkdirAll(tmplDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ops", "domain.yaml"), []byte("name: Ops\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmplDir, "template.yaml"), []byte("name: Broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader()
	if err := loader.LoadFromDir(dir); err != nil {
		t.Fatalf("LoadFromDir failed: %v", err)
	}

	// Broken template is skipped, domain still loads
	if loader.GetDomain("ops") == nil {
		t.Fatal("ops domain should load despite broken template")
	}
	if loader.GetTemplate("ops/broken") != nil {
		t.Error("template without competency must be skipped")
	}
}

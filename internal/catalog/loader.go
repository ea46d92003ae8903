package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/playops-hq/playops-engine/internal/models"
)

// Loader manages loading and caching of the competency catalog:
// domain directories containing game template definitions.
type Loader struct {
	mu        sync.RWMutex
	domains   map[string]*models.Domain
	templates map[string]*models.GameTemplate
}

// NewLoader creates a new catalog loader
func NewLoader() *Loader {
	return &Loader{
		domains:   make(map[string]*models.Domain),
		templates: make(map[string]*models.GameTemplate),
	}
}

// LoadFromDir scans for domain.yaml directories and loads their templates
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read catalog directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		domainDir := filepath.Join(dir, entry.Name())
		domainYaml := filepath.Join(domainDir, "domain.yaml")

		if _, err := os.Stat(domainYaml); os.IsNotExist(err) {
			continue // not a domain directory
		}

		domain, err := l.loadDomain(entry.Name(), domainDir)
		if err != nil {
			slog.Warn("failed to load domain", "dir", entry.Name(), "error", err)
			continue
		}

		l.mu.Lock()
		l.domains[domain.ID] = domain
		l.mu.Unlock()

		slog.Info("catalog domain loaded", "id", domain.ID, "name", domain.Name,
			"templates", domain.TemplatesCount)
	}

	return nil
}

// loadDomain loads a single domain and its templates
func (l *Loader) loadDomain(id string, dir string) (*models.Domain, error) {
	data, err := os.ReadFile(filepath.Join(dir, "domain.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read domain.yaml: %w", err)
	}

	var df domainFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("failed to parse domain.yaml: %w", err)
	}

	domain := &models.Domain{
		ID:          id,
		Name:        df.Name,
		Description: df.Description,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read domain dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		templateYaml := filepath.Join(dir, entry.Name(), "template.yaml")
		if _, err := os.Stat(templateYaml); os.IsNotExist(err) {
			continue // not a template directory
		}

		tmpl, err := l.loadTemplate(id, entry.Name(), templateYaml)
		if err != nil {
			slog.Warn("failed to load template", "domain", id, "template", entry.Name(), "error", err)
			continue
		}

		l.mu.Lock()
		l.templates[tmpl.ID] = tmpl
		l.mu.Unlock()

		domain.TemplatesCount++
	}

	return domain, nil
}

// loadTemplate loads a single template.yaml file
func (l *Loader) loadTemplate(domainID, templateName, path string) (*models.GameTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse template YAML: %w", err)
	}

	if tf.Name == "" {
		return nil, fmt.Errorf("template name is required")
	}
	if tf.Competency == "" {
		return nil, fmt.Errorf("competency is required")
	}

	tmpl := &models.GameTemplate{
		ID:              domainID + "/" + templateName,
		DomainID:        domainID,
		Name:            tf.Name,
		Description:     tf.Description,
		Competency:      tf.Competency,
		SubCompetencies: tf.SubCompetencies,
		Skills:          tf.Skills,
		Defaults:        tf.Defaults,
		Testing:         tf.Testing,
	}

	// Threshold defaults mirror the platform baseline
	if tmpl.Defaults.TimeLimitS <= 0 {
		tmpl.Defaults.TimeLimitS = 90
	}
	if tmpl.Defaults.AccuracyThreshold <= 0 {
		tmpl.Defaults.AccuracyThreshold = 0.9
	}
	if tmpl.Defaults.EdgeThreshold <= 0 {
		tmpl.Defaults.EdgeThreshold = 0.8
	}
	if tmpl.Defaults.SessionsRequired < 1 {
		tmpl.Defaults.SessionsRequired = 1
	}

	slog.Info("template loaded", "id", tmpl.ID, "competency", tmpl.Competency)
	return tmpl, nil
}

// GetDomain returns a domain by ID
func (l *Loader) GetDomain(id string) *models.Domain {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.domains[id]
}

// ListDomains returns all loaded domains
func (l *Loader) ListDomains() []*models.Domain {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Domain, 0, len(l.domains))
	for _, d := range l.domains {
		result = append(result, d)
	}
	return result
}

// GetTemplate returns a template by ID (e.g. "sales/objection-handling")
func (l *Loader) GetTemplate(id string) *models.GameTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.templates[id]
}

// ListTemplates returns all templates for a given domain
func (l *Loader) ListTemplates(domainID string) []*models.GameTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*models.GameTemplate
	for _, t := range l.templates {
		if t.DomainID == domainID {
			result = append(result, t)
		}
	}
	return result
}

// Add programmatically adds a template
func (l *Loader) Add(tmpl *models.GameTemplate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[tmpl.ID] = tmpl
}

// --- YAML file structs ---

// domainFile represents the YAML structure of a domain.yaml file
type domainFile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// templateFile represents the YAML structure of a template.yaml file
type templateFile struct {
	Name            string               `yaml:"name"`
	Description     string               `yaml:"description"`
	Competency      string               `yaml:"competency"`
	SubCompetencies []string             `yaml:"sub_competencies"`
	Skills          []string             `yaml:"skills"`
	Defaults        models.ModeDefaults  `yaml:"defaults"`
	Testing         *models.ModeDefaults `yaml:"testing"`
}

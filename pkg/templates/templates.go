// Package templates renders deployment files for running hookbox as a
// service: a systemd unit and an nginx reverse-proxy site.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// Template names
const (
	NginxSite      = "nginx-site"
	SystemdService = "systemd-service"
)

//go:embed files/*.template
var builtin embed.FS

// GetTemplatePaths returns the override search paths for a template
func GetTemplatePaths(templateName string) []string {
	filename := templateName + ".template"
	return []string{
		filepath.Join(".", "templates", filename),
		filepath.Join(".", "config", "templates", filename),
		filepath.Join("/etc", "hookbox", "templates", filename),
	}
}

// ValidateTemplate checks if a template name is known
func ValidateTemplate(name string) bool {
	return name == NginxSite || name == SystemdService
}

// GetTemplate returns the raw template content by name.
// A file in one of the override paths wins over the built-in template:
// 1. ./templates/<name>.template
// 2. ./config/templates/<name>.template
// 3. /etc/hookbox/templates/<name>.template
func GetTemplate(name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range GetTemplatePaths(name) {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	content, err := builtin.ReadFile("files/" + name + ".template")
	if err != nil {
		return "", fmt.Errorf("template file not found: %s", name)
	}
	return string(content), nil
}

// Render executes a template with data using text/template.
func Render(templateName string, data interface{}) (string, error) {
	tmplContent, err := GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(templateName).Option("missingkey=error").Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// ServiceData fills the systemd unit.
type ServiceData struct {
	Mode       string // serve or work
	User       string
	Group      string
	WorkingDir string
	Home       string
	Binary     string
	ConfigFile string
	LogFile    string
	Env        []string // extra KEY=value lines, e.g. HOOKBOX_QUEUE=redis
}

// RenderSystemdService renders the systemd unit for one hookbox process.
func RenderSystemdService(data ServiceData) (string, error) {
	if data.Mode != "serve" && data.Mode != "work" {
		return "", fmt.Errorf("unknown service mode %q (expected serve or work)", data.Mode)
	}
	return Render(SystemdService, data)
}

// SiteData fills the nginx site.
type SiteData struct {
	Domain   string
	Upstream string // host:port of hookbox serve
}

// RenderNginxSite renders the nginx reverse-proxy site.
func RenderNginxSite(domain, upstream string) (string, error) {
	if domain == "" {
		return "", fmt.Errorf("domain is required")
	}
	return Render(NginxSite, SiteData{Domain: domain, Upstream: upstream})
}

package mail

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aymerick/raymond"
)

// TemplateService renders Handlebars email templates from templateDir.
//
// A template named "property-created" is read from property-created.hbs (HTML)
// and, when present, property-created.txt.hbs (plain text). Parsed templates are
// cached for the life of the service.
type TemplateService struct {
	templateDir string
	log         *slog.Logger

	templateCache map[string]*raymond.Template
	mu            sync.RWMutex
}

// TemplateRenderResult contains the rendered email content
type TemplateRenderResult struct {
	HTML string
	Text string
}

// TemplateContext is the data passed to templates
type TemplateContext map[string]interface{}

func NewTemplateService(templateDir string, log *slog.Logger) *TemplateService {
	return &TemplateService{
		templateDir:   templateDir,
		log:           log.With(slog.String("component", "mail.template")),
		templateCache: make(map[string]*raymond.Template),
	}
}

// Render executes the named template with ctx
func (ts *TemplateService) Render(name string, ctx TemplateContext) (*TemplateRenderResult, error) {
	html, err := ts.loadTemplate(name + ".hbs")
	if err != nil {
		return nil, err
	}

	result := &TemplateRenderResult{}
	result.HTML, err = html.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}

	text, err := ts.loadTemplate(name + ".txt.hbs")
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	result.Text, err = text.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render template %s text: %w", name, err)
	}

	return result, nil
}

func (ts *TemplateService) loadTemplate(file string) (*raymond.Template, error) {
	ts.mu.RLock()
	tmpl, ok := ts.templateCache[file]
	ts.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if tmpl, ok := ts.templateCache[file]; ok {
		return tmpl, nil
	}

	content, err := os.ReadFile(filepath.Join(ts.templateDir, file))
	if err != nil {
		return nil, err
	}

	tmpl, err = raymond.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
	}
	tmpl.RegisterHelpers(templateHelpers)

	ts.templateCache[file] = tmpl
	ts.log.Debug("Loaded email template", slog.String("file", file))

	return tmpl, nil
}

var templateHelpers = map[string]interface{}{
	"money":    moneyHelper,
	"number":   numberHelper,
	"title":    titleHelper,
	"join":     joinHelper,
	"datetime": datetimeHelper,
}

// moneyHelper formats a value with two decimals and thousands separators: 1,234.50
func moneyHelper(value interface{}) string {
	f, ok := toFloat(value)
	if !ok {
		return ""
	}
	return formatNumber(f, 2)
}

// numberHelper formats a value with thousands separators and no decimals
func numberHelper(value interface{}) string {
	f, ok := toFloat(value)
	if !ok {
		return ""
	}
	return formatNumber(f, 0)
}

// titleHelper upper-cases the first letter and turns underscores into spaces
func titleHelper(value interface{}) string {
	s := strings.ReplaceAll(fmt.Sprint(value), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func joinHelper(value interface{}, sep string) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, sep)
	case []interface{}:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, sep)
	default:
		return ""
	}
}

// datetimeHelper renders times like "March 4, 2025 at 2:05 PM"
func datetimeHelper(value interface{}) string {
	switch v := value.(type) {
	case time.Time:
		return v.Format("January 2, 2006 at 3:04 PM")
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format("January 2, 2006 at 3:04 PM")
	default:
		return ""
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case *float64:
		if v == nil {
			return 0, false
		}
		return *v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case *int:
		if v == nil {
			return 0, false
		}
		return float64(*v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatNumber(f float64, decimals int) string {
	raw := strconv.FormatFloat(f, 'f', decimals, 64)

	sign := ""
	if strings.HasPrefix(raw, "-") {
		sign, raw = "-", raw[1:]
	}

	intPart, fracPart, _ := strings.Cut(raw, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if fracPart != "" {
		return sign + b.String() + "." + fracPart
	}
	return sign + b.String()
}

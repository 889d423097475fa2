package ai

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"
)

//go:embed prompts/*.toml
var promptFS embed.FS

type promptFile struct {
	Name   string `toml:"name"`
	System string `toml:"system"`
	User   string `toml:"user"`
}

type prompt struct {
	system *template.Template
	user   *template.Template
}

// Prompts holds the parsed templates for every analysis kind.
type Prompts struct {
	byKind map[Kind]prompt
}

// promptData is what templates can reference.
type promptData struct {
	Symbol    string
	Name      string
	Language  string
	Target    string
	Payload   string
	Question  string
	GuardHint string
	Text      string
}

var promptKinds = []Kind{KindOverview, KindQuestion, KindEarnings, KindDocument, KindTranslate}

// LoadPrompts parses the embedded templates. A file named {kind}.toml in
// overrideDir replaces the embedded one.
func LoadPrompts(overrideDir string) (*Prompts, error) {
	p := &Prompts{byKind: make(map[Kind]prompt, len(promptKinds))}
	for _, kind := range promptKinds {
		data, err := readPrompt(string(kind), overrideDir)
		if err != nil {
			return nil, err
		}
		var f promptFile
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", kind, err)
		}
		if strings.TrimSpace(f.System) == "" || strings.TrimSpace(f.User) == "" {
			return nil, fmt.Errorf("prompt %s: system and user are required", kind)
		}
		sys, err := template.New(string(kind) + ".system").Option("missingkey=error").Parse(f.System)
		if err != nil {
			return nil, fmt.Errorf("prompt %s system: %w", kind, err)
		}
		usr, err := template.New(string(kind) + ".user").Option("missingkey=error").Parse(f.User)
		if err != nil {
			return nil, fmt.Errorf("prompt %s user: %w", kind, err)
		}
		p.byKind[kind] = prompt{system: sys, user: usr}
	}
	return p, nil
}

func readPrompt(name, overrideDir string) ([]byte, error) {
	if overrideDir != "" {
		if data, err := os.ReadFile(filepath.Join(overrideDir, name+".toml")); err == nil {
			return data, nil
		}
	}
	data, err := promptFS.ReadFile("prompts/" + name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("prompt '%s' not found (checked override and embedded)", name)
	}
	return data, nil
}

func (p *Prompts) render(kind Kind, data promptData) (system, user string, err error) {
	pr, ok := p.byKind[kind]
	if !ok {
		return "", "", fmt.Errorf("no prompt for %s", kind)
	}
	var sb, ub bytes.Buffer
	if err := pr.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s system prompt: %w", kind, err)
	}
	if err := pr.user.Execute(&ub, data); err != nil {
		return "", "", fmt.Errorf("render %s user prompt: %w", kind, err)
	}
	return strings.TrimSpace(sb.String()), strings.TrimSpace(ub.String()), nil
}

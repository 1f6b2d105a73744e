// Package campaign reads bulk-send campaigns from uploaded files. A file is
// either a TOML document with name, message and targets, or a plain list of
// targets separated by newlines or commas.
package campaign

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/zalo-accounts/internal/domain"
)

var ErrNoTargets = errors.New("campaign has no targets")

// Parse decodes data by extension. Files without a .toml extension are read
// as target lists and take their message from fallbackMessage. A non-empty
// fallbackMessage also overrides an empty TOML message.
func Parse(filename string, data []byte, fallbackMessage string) (domain.Campaign, error) {
	var (
		c   domain.Campaign
		err error
	)
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		c, err = parseTOML(data)
	} else {
		c = domain.Campaign{Targets: parseList(data)}
	}
	if err != nil {
		return domain.Campaign{}, err
	}

	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if strings.TrimSpace(c.Message) == "" {
		c.Message = fallbackMessage
	}
	c.Targets = dedupe(c.Targets)
	if len(c.Targets) == 0 {
		return domain.Campaign{}, ErrNoTargets
	}
	if strings.TrimSpace(c.Message) == "" {
		return domain.Campaign{}, fmt.Errorf("campaign %q: %w", c.Name, domain.ErrEmptyMessage)
	}
	return c, nil
}

func parseTOML(data []byte) (domain.Campaign, error) {
	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.Campaign{}, fmt.Errorf("decode campaign file: %w", err)
	}
	file.applyDefaults()
	if err := file.validateVersion(); err != nil {
		return domain.Campaign{}, err
	}

	return domain.Campaign{
		Name:    strings.TrimSpace(file.Name),
		Message: file.Message,
		Targets: file.Targets,
	}, nil
}

// parseList reads one or more targets per line. Blank lines and lines
// starting with # are skipped.
func parseList(data []byte) []string {
	var targets []string
	scanner := bufio.NewScanner(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ';' || r == '\t' }) {
			targets = append(targets, field)
		}
	}
	return targets
}

func dedupe(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))
	for _, raw := range targets {
		target := domain.SanitizeIdentifier(raw)
		if target == "" {
			continue
		}
		if domain.IsPhoneIdentifier(target) {
			target = domain.NormalizePhone(target)
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

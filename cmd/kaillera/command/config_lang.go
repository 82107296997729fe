package command

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/pixil98/go-kaillera/internal/lang"
)

type LangConfig struct {
	Language  string            `json:"language"`
	Overrides map[string]string `json:"overrides"`
}

func (c *LangConfig) Validate() error {
	if _, err := c.tag(); err != nil {
		return err
	}
	return nil
}

func (c *LangConfig) tag() (language.Tag, error) {
	if c.Language == "" {
		return language.English, nil
	}
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.Und, fmt.Errorf("lang: parsing language %q: %w", c.Language, err)
	}
	return tag, nil
}

func (c *LangConfig) BuildCatalog() (*lang.Catalog, error) {
	tag, err := c.tag()
	if err != nil {
		return nil, err
	}
	return lang.NewCatalog(tag, c.Overrides)
}

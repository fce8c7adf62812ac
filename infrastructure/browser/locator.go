package browser

import (
	"fmt"
	"strings"
	"unicode"
)

// By is a WebDriver element location strategy. Values match the strategy
// names of the WebDriver protocol so they can be passed through unchanged.
type By string

const (
	ByID              By = "id"
	ByCSSSelector     By = "css selector"
	ByXPath           By = "xpath"
	ByName            By = "name"
	ByClassName       By = "class name"
	ByTagName         By = "tag name"
	ByLinkText        By = "link text"
	ByPartialLinkText By = "partial link text"
)

// label is the strategy name used in a Locator's string form.
func (b By) label() string {
	switch b {
	case ByID:
		return "id"
	case ByCSSSelector:
		return "cssSelector"
	case ByXPath:
		return "xpath"
	case ByName:
		return "name"
	case ByClassName:
		return "className"
	case ByTagName:
		return "tagName"
	case ByLinkText:
		return "linkText"
	case ByPartialLinkText:
		return "partialLinkText"
	default:
		return string(b)
	}
}

// ParseBy accepts protocol names ("css selector") as well as the short forms
// used in script files ("css", "class", "link").
func ParseBy(s string) (By, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "id":
		return ByID, nil
	case "css", "css selector", "cssselector", "selector":
		return ByCSSSelector, nil
	case "xpath":
		return ByXPath, nil
	case "name":
		return ByName, nil
	case "class", "class name", "classname":
		return ByClassName, nil
	case "tag", "tag name", "tagname":
		return ByTagName, nil
	case "link", "link text", "linktext":
		return ByLinkText, nil
	case "partial link", "partial link text", "partiallinktext":
		return ByPartialLinkText, nil
	default:
		return "", fmt.Errorf("unknown locator strategy %q", s)
	}
}

// Locator describes how to find elements in a document.
type Locator struct {
	By    By
	Value string
}

func ID(value string) Locator          { return Locator{By: ByID, Value: value} }
func CSS(value string) Locator         { return Locator{By: ByCSSSelector, Value: value} }
func XPath(value string) Locator       { return Locator{By: ByXPath, Value: value} }
func Name(value string) Locator        { return Locator{By: ByName, Value: value} }
func ClassName(value string) Locator   { return Locator{By: ByClassName, Value: value} }
func TagName(value string) Locator     { return Locator{By: ByTagName, Value: value} }
func LinkText(value string) Locator    { return Locator{By: ByLinkText, Value: value} }
func PartialLink(value string) Locator { return Locator{By: ByPartialLinkText, Value: value} }

// String returns the form used in run logs, e.g. "By.id: username".
func (l Locator) String() string {
	return "By." + l.By.label() + ": " + l.Value
}

// Validate reports whether the locator has a known strategy and a value.
func (l Locator) Validate() error {
	if _, err := ParseBy(string(l.By)); err != nil {
		return err
	}
	if l.Value == "" {
		return fmt.Errorf("locator %s has an empty value", l.By.label())
	}
	if l.By == ByClassName && strings.ContainsFunc(l.Value, unicode.IsSpace) {
		return fmt.Errorf("locator className %q: compound class names are not supported", l.Value)
	}
	return nil
}

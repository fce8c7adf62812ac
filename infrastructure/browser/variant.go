package browser

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrUnsupportedVariant is returned for browser variants without a driver.
var ErrUnsupportedVariant = errors.New("unsupported browser variant")

// Variant identifies a browser family and the native driver it requires.
type Variant int

const (
	VariantFirefox Variant = iota + 1
	VariantChrome
	VariantInternetExplorer
)

// Variants lists every supported browser variant.
func Variants() []Variant {
	return []Variant{VariantFirefox, VariantChrome, VariantInternetExplorer}
}

// String returns the string representation of the variant.
func (v Variant) String() string {
	switch v {
	case VariantFirefox:
		return "Firefox"
	case VariantChrome:
		return "Chrome"
	case VariantInternetExplorer:
		return "InternetExplorer"
	default:
		return fmt.Sprintf("Unknown(%d)", int(v))
	}
}

// Valid returns true for the known variants.
func (v Variant) Valid() bool {
	return v >= VariantFirefox && v <= VariantInternetExplorer
}

// DriverFileName is the native driver executable for this variant.
func (v Variant) DriverFileName() string {
	var name string
	switch v {
	case VariantFirefox:
		name = "geckodriver"
	case VariantChrome:
		name = "chromedriver"
	case VariantInternetExplorer:
		return "IEDriverServer.exe"
	default:
		return ""
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}

// DriverKey is the environment key that tells the driver where its
// native executable lives.
func (v Variant) DriverKey() string {
	switch v {
	case VariantFirefox:
		return "webdriver.gecko.driver"
	case VariantChrome:
		return "webdriver.chrome.driver"
	case VariantInternetExplorer:
		return "webdriver.ie.driver"
	default:
		return ""
	}
}

// DriverPath joins the drivers directory with the variant's executable name.
func (v Variant) DriverPath(dir string) string {
	return filepath.Join(dir, v.DriverFileName())
}

// browserName is the WebDriver capability value for the variant.
func (v Variant) browserName() string {
	switch v {
	case VariantFirefox:
		return "firefox"
	case VariantChrome:
		return "chrome"
	case VariantInternetExplorer:
		return "internet explorer"
	default:
		return ""
	}
}

// ParseVariant converts a case-insensitive browser name to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "firefox", "gecko":
		return VariantFirefox, nil
	case "chrome", "chromium":
		return VariantChrome, nil
	case "ie", "internetexplorer", "internet explorer", "internet-explorer":
		return VariantInternetExplorer, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVariant, s)
	}
}

package safety

import (
	"encoding/json"
	"fmt"
)

// Config controls which checks the Layer runs and the size limits it
// enforces. A disabled layer passes everything through unchanged.
type Config struct {
	Enabled           bool
	MaxOutputLength   int
	MaxInputLength    int
	WrapOutputXML     bool
	InjectionDetection bool
	LeakDetection     bool
}

func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		MaxOutputLength:    100 * 1024,
		MaxInputLength:     100 * 1024,
		WrapOutputXML:      true,
		InjectionDetection: true,
		LeakDetection:      true,
	}
}

// Layer orchestrates validation, leak detection, injection detection, and
// policy checks around every tool call.
type Layer struct {
	config    Config
	sanitizer *Sanitizer
	leaks     *LeakDetector
	validator *Validator
	policy    *SafetyPolicy
}

func NewLayer(config Config) *Layer {
	return &Layer{
		config:    config,
		sanitizer: NewSanitizer(),
		leaks:     NewLeakDetector(),
		validator: NewValidator(ValidatorConfig{MaxLength: config.MaxInputLength}),
		policy:    DefaultSafetyPolicy(),
	}
}

func NewDefaultLayer() *Layer {
	return NewLayer(DefaultConfig())
}

// CheckInput validates and scans every string value in args, failing on the
// first violation: validator first (fail fast), then per-string leak
// detector -> injection sanitizer -> policy engine.
func (l *Layer) CheckInput(toolName string, args json.RawMessage) error {
	if !l.config.Enabled {
		return nil
	}

	if err := l.validator.ValidateJSON(args); err != nil {
		return err
	}

	strs := collectStrings(args)
	for _, text := range strs {
		if l.config.LeakDetection {
			for _, leak := range l.leaks.Scan(text) {
				if leak.Action == LeakBlock {
					return errLeakDetected(leak.PatternName, leak.Action.String())
				}
			}
		}

		if l.config.InjectionDetection {
			for _, inj := range l.sanitizer.Scan(text) {
				if inj.Severity >= SeverityHigh {
					return errInjectionDetected(inj.Pattern, inj.Severity)
				}
			}
		}

		for _, violation := range l.policy.Check(text) {
			if violation.Action == PolicyBlock {
				return errPolicyViolation(violation.Rule, violation.Severity)
			}
		}
	}

	return nil
}

// CheckOutput cleans leaked secrets from output, truncates it if it exceeds
// MaxOutputLength, and optionally wraps it in an XML boundary tag.
func (l *Layer) CheckOutput(toolName string, output json.RawMessage) (json.RawMessage, error) {
	if !l.config.Enabled {
		return output, nil
	}

	var decoded interface{}
	if len(output) > 0 {
		if err := json.Unmarshal(output, &decoded); err != nil {
			decoded = string(output)
		}
	}

	if l.config.LeakDetection {
		decoded = cleanJSONLeaks(l.leaks, decoded)
	}

	serialized, err := json.Marshal(decoded)
	if err != nil {
		serialized = []byte(fmt.Sprintf("%v", decoded))
	}
	if len(serialized) > l.config.MaxOutputLength {
		truncated := serialized[:l.config.MaxOutputLength]
		var reparsed interface{}
		if err := json.Unmarshal(truncated, &reparsed); err == nil {
			decoded = reparsed
		} else {
			preview := truncated
			if len(preview) > 1024 {
				preview = preview[:1024]
			}
			decoded = fmt.Sprintf("%s... [truncated, exceeded %d byte limit]", preview, l.config.MaxOutputLength)
		}
	}

	if l.config.WrapOutputXML {
		decoded = wrapInXMLBoundary(toolName, decoded)
	}

	return json.Marshal(decoded)
}

func collectStrings(value json.RawMessage) []string {
	var decoded interface{}
	if len(value) == 0 {
		return nil
	}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return nil
	}
	var out []string
	collectStringsRecursive(decoded, &out)
	return out
}

func collectStringsRecursive(value interface{}, out *[]string) {
	switch v := value.(type) {
	case string:
		*out = append(*out, v)
	case []interface{}:
		for _, item := range v {
			collectStringsRecursive(item, out)
		}
	case map[string]interface{}:
		for _, item := range v {
			collectStringsRecursive(item, out)
		}
	}
}

func cleanJSONLeaks(detector *LeakDetector, value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		cleaned, _ := detector.ScanAndClean(v)
		return cleaned
	case []interface{}:
		cleaned := make([]interface{}, len(v))
		for i, item := range v {
			cleaned[i] = cleanJSONLeaks(detector, item)
		}
		return cleaned
	case map[string]interface{}:
		cleaned := make(map[string]interface{}, len(v))
		for k, item := range v {
			cleaned[k] = cleanJSONLeaks(detector, item)
		}
		return cleaned
	default:
		return v
	}
}

func wrapInXMLBoundary(toolName string, value interface{}) string {
	var content string
	if s, ok := value.(string); ok {
		content = s
	} else if b, err := json.MarshalIndent(value, "", "  "); err == nil {
		content = string(b)
	}
	return fmt.Sprintf("<tool_output tool=\"%s\">\n%s\n</tool_output>", toolName, content)
}

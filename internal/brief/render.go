package brief

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	varRe      = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)
	ifOpenRe   = regexp.MustCompile(`\{\{#if\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	ifCloseStr = "{{/if}}"
)

// Vars is a map of variable names to values for brief rendering.
type Vars map[string]string

// Render expands a brief template with the given variables.
// {{variable}} is replaced with its value; missing variables cause an error.
// {{#if variable}}...{{/if}} blocks are kept only if the variable is non-empty.
func Render(tmpl string, vars Vars) (string, error) {
	result, err := stripConditionals(tmpl, vars)
	if err != nil {
		return "", err
	}

	var missing []string
	expanded := varRe.ReplaceAllStringFunc(result, func(match string) string {
		name := varRe.FindStringSubmatch(match)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		missing = append(missing, name)
		return match
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing brief variables: %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// stripConditionals resolves {{#if var}}...{{/if}} blocks, innermost first,
// so conditionals may nest.
func stripConditionals(tmpl string, vars Vars) (string, error) {
	result := tmpl
	for {
		closeIdx := strings.Index(result, ifCloseStr)
		if closeIdx == -1 {
			break
		}

		opens := ifOpenRe.FindAllStringSubmatchIndex(result[:closeIdx], -1)
		if opens == nil {
			return "", fmt.Errorf("dangling {{/if}} without matching {{#if}}")
		}
		open := opens[len(opens)-1]
		name := result[open[2]:open[3]]
		body := result[open[1]:closeIdx]

		replacement := ""
		if val, ok := vars[name]; ok && val != "" {
			replacement = body
		}
		result = result[:open[0]] + replacement + result[closeIdx+len(ifCloseStr):]
	}

	if loc := ifOpenRe.FindString(result); loc != "" {
		return "", fmt.Errorf("unclosed conditional block: %s", loc)
	}
	return result, nil
}

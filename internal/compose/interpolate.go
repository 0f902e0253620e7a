package compose

import (
	"fmt"
	"strings"
)

// Lookup resolves a variable name to a value. The second return value
// reports whether the variable is set at all; a set-but-empty variable
// is distinct from an unset one for the ":-" and "-" operator forms.
type Lookup func(name string) (string, bool)

// MapLookup builds a Lookup over one or more maps, consulted in order.
// Earlier maps win, matching the resolution order the engine uses
// (step env, then env file, then process environment).
func MapLookup(maps ...map[string]string) Lookup {
	return func(name string) (string, bool) {
		for _, m := range maps {
			if v, ok := m[name]; ok {
				return v, true
			}
		}
		return "", false
	}
}

// MissingVariableError reports a required variable reference that no
// source could resolve.
type MissingVariableError struct {
	// Name is the unresolved variable.
	Name string

	// Message is the custom error text from a ${VAR:?msg} form, if any.
	Message string
}

// Error implements the error interface.
func (e *MissingVariableError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("required variable %q is not set: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("required variable %q is not set", e.Name)
}

// Variable describes one variable reference found in a document.
type Variable struct {
	// Name is the referenced variable.
	Name string

	// Required is true when the reference has no default value, so an
	// unset variable fails interpolation.
	Required bool

	// Default is the fallback from a ${VAR:-def} or ${VAR-def} form.
	Default string
}

// Interpolate substitutes variable references in src using the compose
// interpolation syntax:
//
//	$VAR         value of VAR; empty when unset
//	${VAR}       same as $VAR
//	${VAR:-def}  def when VAR is unset or empty
//	${VAR-def}   def when VAR is unset
//	${VAR:?msg}  error when VAR is unset or empty
//	${VAR?msg}   error when VAR is unset
//	$$           a literal dollar sign
//
// The bare forms ($VAR, ${VAR}) substitute the empty string when unset,
// mirroring the compose tool's warning-then-empty behavior; only the
// "?" forms make an unset variable fatal.
func Interpolate(src []byte, lookup Lookup) ([]byte, error) {
	s := string(src)
	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		if c != '$' {
			out.WriteByte(c)
			i++
			continue
		}

		// End of input after '$': keep the literal dollar.
		if i+1 >= len(s) {
			out.WriteByte('$')
			break
		}

		next := s[i+1]
		switch {
		case next == '$':
			out.WriteByte('$')
			i += 2
		case next == '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated variable reference at offset %d", i)
			}
			expr := s[i+2 : i+2+end]
			value, err := resolveBraced(expr, lookup)
			if err != nil {
				return nil, err
			}
			out.WriteString(value)
			i += 2 + end + 1
		case isNameStart(next):
			j := i + 1
			for j < len(s) && isNameChar(s[j]) {
				j++
			}
			name := s[i+1 : j]
			value, _ := lookup(name)
			out.WriteString(value)
			i = j
		default:
			// "$" followed by something that cannot start a name
			// (e.g. "$1" in a command) passes through untouched.
			out.WriteByte('$')
			i++
		}
	}

	return []byte(out.String()), nil
}

// resolveBraced handles the ${...} forms, including operators.
func resolveBraced(expr string, lookup Lookup) (string, error) {
	name, op, arg := splitOperator(expr)
	if name == "" || !validName(name) {
		return "", fmt.Errorf("invalid variable reference ${%s}", expr)
	}

	value, set := lookup(name)
	switch op {
	case "":
		return value, nil
	case ":-":
		if !set || value == "" {
			return arg, nil
		}
		return value, nil
	case "-":
		if !set {
			return arg, nil
		}
		return value, nil
	case ":?":
		if !set || value == "" {
			return "", &MissingVariableError{Name: name, Message: arg}
		}
		return value, nil
	case "?":
		if !set {
			return "", &MissingVariableError{Name: name, Message: arg}
		}
		return value, nil
	default:
		return "", fmt.Errorf("unsupported operator %q in ${%s}", op, expr)
	}
}

// splitOperator separates ${NAME<op><arg>} into its parts. The operator
// is the first of ":-", "-", ":?", "?" appearing after the name.
func splitOperator(expr string) (name, op, arg string) {
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case ':':
			if i+1 < len(expr) && (expr[i+1] == '-' || expr[i+1] == '?') {
				return expr[:i], expr[i : i+2], expr[i+2:]
			}
		case '-', '?':
			return expr[:i], expr[i : i+1], expr[i+1:]
		}
	}
	return expr, "", ""
}

// Variables scans src and returns every distinct variable reference in
// order of first appearance. Used to report the full set of required
// variables before interpolation runs.
func Variables(src []byte) ([]Variable, error) {
	s := string(src)
	var vars []Variable
	seen := make(map[string]bool)

	add := func(v Variable) {
		if !seen[v.Name] {
			seen[v.Name] = true
			vars = append(vars, v)
		}
	}

	for i := 0; i < len(s); {
		if s[i] != '$' {
			i++
			continue
		}
		if i+1 >= len(s) {
			break
		}
		next := s[i+1]
		switch {
		case next == '$':
			i += 2
		case next == '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated variable reference at offset %d", i)
			}
			expr := s[i+2 : i+2+end]
			name, op, arg := splitOperator(expr)
			if validName(name) {
				switch op {
				case ":-", "-":
					add(Variable{Name: name, Default: arg})
				default:
					add(Variable{Name: name, Required: true})
				}
			}
			i += 2 + end + 1
		case isNameStart(next):
			j := i + 1
			for j < len(s) && isNameChar(s[j]) {
				j++
			}
			add(Variable{Name: s[i+1 : j], Required: true})
			i = j
		default:
			i++
		}
	}

	return vars, nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func validName(name string) bool {
	if name == "" || !isNameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}
	return true
}

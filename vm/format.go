package vm

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	fixedSpec    = regexp.MustCompile(`^\.(\d+)$`)
	expSpec      = regexp.MustCompile(`^\.(\d+)([eE])$`)
	alignSpec    = regexp.MustCompile(`^([<>^]?)(\d+)$`)
	zeroPadSpec  = regexp.MustCompile(`^0>(\d+)$`)
	radixByVerbs = map[string]int{"x": 16, "X": 16, "b": 2, "o": 8}
)

// Format renders one value under a format spec:
//
//	""       default stringification
//	"x" "X"  hexadecimal (X upper case)
//	"b" "o"  binary, octal
//	"e" "E"  shortest exponential notation
//	".N"     N fractional digits
//	".Ne"    exponential notation with N fractional digits
//	"c"      the character with the given code point
//	"0>N"    left-pad with '0' to N characters
//	"<N" ">N" "^N" "N"
//	         pad with spaces to N characters: left, right (default) or
//	         centered with the extra space on the right
//
// Any other spec falls back to the default stringification.
func Format(v Value, spec string) string {
	if spec == "" {
		return ToString(v)
	}

	if base, ok := radixByVerbs[spec]; ok {
		s, ok := formatRadix(v, base)
		if !ok {
			return ToString(v)
		}
		if spec == "X" {
			s = strings.ToUpper(s)
		}
		return s
	}

	switch spec {
	case "e", "E":
		if !v.IsNumber() {
			return ToString(v)
		}
		s := jsExponent(strconv.FormatFloat(v.AsFloat(), 'e', -1, 64))
		if spec == "E" {
			s = strings.ToUpper(s)
		}
		return s
	case "c":
		if !v.IsNumber() {
			return ToString(v)
		}
		return string(rune(v.AsInt()))
	}

	if m := fixedSpec.FindStringSubmatch(spec); m != nil {
		if !v.IsNumber() {
			return ToString(v)
		}
		prec, _ := strconv.Atoi(m[1])
		return formatFixed(v.AsFloat(), prec)
	}
	if m := expSpec.FindStringSubmatch(spec); m != nil {
		if !v.IsNumber() {
			return ToString(v)
		}
		prec, _ := strconv.Atoi(m[1])
		s := formatExp(v.AsFloat(), prec)
		if m[2] == "E" {
			s = strings.ToUpper(s)
		}
		return s
	}
	if m := alignSpec.FindStringSubmatch(spec); m != nil {
		width, _ := strconv.Atoi(m[2])
		return pad(ToString(v), width, m[1], ' ')
	}
	if m := zeroPadSpec.FindStringSubmatch(spec); m != nil {
		width, _ := strconv.Atoi(m[1])
		return pad(ToString(v), width, ">", '0')
	}
	return ToString(v)
}

// FormatString replaces each {} or {:spec} placeholder of tmpl with the
// next value, formatted under spec. "{{" and "}}" produce literal braces.
// A placeholder with no remaining value formats as null. An unterminated
// "{" is copied literally along with the rest of the template.
func FormatString(tmpl string, values []Value) string {
	var sb strings.Builder
	next := 0
	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			sb.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			sb.WriteByte('}')
			i += 2
		case c == '{':
			j := strings.IndexByte(tmpl[i+1:], '}')
			if j < 0 {
				sb.WriteString(tmpl[i:])
				return sb.String()
			}
			inner := tmpl[i+1 : i+1+j]
			spec := ""
			if k := strings.IndexByte(inner, ':'); k >= 0 {
				spec = inner[k+1:]
			}
			v := Null()
			if next < len(values) {
				v = values[next]
			}
			next++
			sb.WriteString(Format(v, spec))
			i += j + 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

// ToString is the default stringification used by format placeholders,
// string concatenation and the println builtin.
func ToString(v Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.num != 0)
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return formatNumber(v.flt)
	case KindString:
		return v.str
	case KindArray:
		parts := make([]string, len(v.arr.elems))
		for i, e := range v.arr.elems {
			parts[i] = ToString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindStruct:
		parts := make([]string, len(v.st.fields))
		for i, f := range v.st.fields {
			parts[i] = f.Name + ": " + ToString(f.Value)
		}
		return v.st.Type + "{" + strings.Join(parts, ", ") + "}"
	case KindBox:
		return v.Box().String()
	case KindInterface:
		return ToString(v.iface.payload)
	case KindHandle:
		return "<handle>"
	}
	return "?"
}

// formatNumber renders a float the way numbers print in the host the
// generated code targets: shortest round-trip digits, integral values
// without a fraction, exponent notation outside [1e-6, 1e21).
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		return jsExponent(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// maxFracDigits bounds the digits requested by ".N" and ".Ne".
const maxFracDigits = 100

func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return "", false
}

// formatFixed renders f with prec fractional digits. Rounding works on
// the exact binary value and a tie goes away from zero, so 2.5 gives "3"
// while 1.005 (really 1.00499...) gives "1.00".
func formatFixed(f float64, prec int) string {
	if s, ok := nonFinite(f); ok {
		return s
	}
	if math.Abs(f) >= 1e21 {
		return formatNumber(f)
	}
	prec = min(prec, maxFracDigits)

	exact := strconv.FormatFloat(math.Abs(f), 'f', 1074, 64)
	dot := strings.IndexByte(exact, '.')
	digits := []byte(exact[:dot] + exact[dot+1:dot+1+prec])
	if exact[dot+1+prec] >= '5' {
		digits = roundUp(digits)
	}

	var sb strings.Builder
	if f < 0 {
		sb.WriteByte('-')
	}
	split := len(digits) - prec
	sb.Write(digits[:split])
	if prec > 0 {
		sb.WriteByte('.')
		sb.Write(digits[split:])
	}
	return sb.String()
}

// formatExp renders f in exponential notation with prec fractional digits
// in the significand, rounding ties away from zero like formatFixed.
func formatExp(f float64, prec int) string {
	if s, ok := nonFinite(f); ok {
		return s
	}
	prec = min(prec, maxFracDigits)

	var digits []byte
	exp := 0
	if f == 0 {
		digits = []byte(strings.Repeat("0", prec+1))
	} else {
		// 800 significant digits hold any float64 exactly.
		exact := strconv.FormatFloat(math.Abs(f), 'e', 800, 64)
		e := strings.IndexByte(exact, 'e')
		all := exact[:1] + exact[2:e]
		exp, _ = strconv.Atoi(exact[e+1:])
		digits = []byte(all[:prec+1])
		if all[prec+1] >= '5' {
			digits = roundUp(digits)
			if len(digits) > prec+1 {
				digits = digits[:prec+1]
				exp++
			}
		}
	}

	var sb strings.Builder
	if f < 0 {
		sb.WriteByte('-')
	}
	sb.WriteByte(digits[0])
	if prec > 0 {
		sb.WriteByte('.')
		sb.Write(digits[1:])
	}
	sb.WriteString("e")
	if exp < 0 {
		sb.WriteByte('-')
		exp = -exp
	} else {
		sb.WriteByte('+')
	}
	sb.WriteString(strconv.Itoa(exp))
	return sb.String()
}

// roundUp adds one in the last place of a decimal digit string, growing
// it by a leading '1' when every digit carries.
func roundUp(digits []byte) []byte {
	for i := len(digits) - 1; i >= 0; i-- {
		if digits[i] < '9' {
			digits[i]++
			return digits
		}
		digits[i] = '0'
	}
	return append([]byte{'1'}, digits...)
}

// jsExponent rewrites Go's "1.5e+02" as "1.5e+2".
func jsExponent(s string) string {
	i := strings.IndexAny(s, "eE")
	if i < 0 || i+1 >= len(s) {
		return s
	}
	mant, exp := s[:i], s[i+1:]
	sign := "+"
	if exp[0] == '+' || exp[0] == '-' {
		sign, exp = exp[:1], exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mant + s[i:i+1] + sign + exp
}

const radixDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

func formatRadix(v Value, base int) (string, bool) {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.num, base), true
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return "", false
		}
		return formatFloatRadix(v.flt, base), true
	}
	return "", false
}

// formatFloatRadix writes f in the given base, emitting fraction digits
// only until they pin down f among its neighbouring float64 values, so
// 1.5 in base 16 is "1.8" and 0.1 is "0.1999999999999a".
func formatFloatRadix(f float64, base int) string {
	neg := f < 0
	f = math.Abs(f)
	integer := math.Floor(f)
	fraction := f - integer

	// Half the gap to the next float64 up; digits stop once the remaining
	// fraction is inside it.
	delta := 0.5 * (math.Nextafter(f, math.Inf(1)) - f)
	delta = math.Max(math.Nextafter(0, 1), delta)

	var frac []byte
	if fraction >= delta {
	digits:
		for {
			fraction *= float64(base)
			delta *= float64(base)
			d := int(fraction)
			frac = append(frac, radixDigits[d])
			fraction -= float64(d)
			if fraction > 0.5 || (fraction == 0.5 && d&1 == 1) {
				if fraction+delta > 1 {
					for {
						if len(frac) == 0 {
							integer++
							break digits
						}
						last := strings.IndexByte(radixDigits, frac[len(frac)-1])
						frac = frac[:len(frac)-1]
						if last+1 < base {
							frac = append(frac, radixDigits[last+1])
							break digits
						}
					}
				}
			}
			if fraction < delta {
				break
			}
		}
	}

	whole, _ := new(big.Float).SetFloat64(integer).Int(nil)
	s := whole.Text(base)
	if len(frac) > 0 {
		s += "." + string(frac)
	}
	if neg {
		s = "-" + s
	}
	return s
}

// pad widens s to width code points. align is "<", ">", "^" or "" (right).
func pad(s string, width int, align string, fill rune) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	gap := width - n
	f := string(fill)
	switch align {
	case "<":
		return s + strings.Repeat(f, gap)
	case "^":
		left := gap / 2
		return strings.Repeat(f, left) + s + strings.Repeat(f, gap-left)
	default:
		return strings.Repeat(f, gap) + s
	}
}

package validate

import "fmt"

// checkSyntax runs a lexical scan over the script: bracket balance,
// terminated strings, and comment handling. It is not a full parser, but
// it catches the structural mistakes models actually make, and reports
// the line number the way a Python traceback would.
func checkSyntax(code string) string {
	type open struct {
		ch   byte
		line int
	}
	var stack []open

	line := 1
	inString := false
	var quote byte
	tripleQuote := false
	stringLine := 0

	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}

	for i := 0; i < len(code); i++ {
		ch := code[i]
		if ch == '\n' {
			if inString && !tripleQuote {
				return fmt.Sprintf("Line %d: unterminated string literal", stringLine)
			}
			line++
			continue
		}

		if inString {
			if ch == '\\' {
				i++ // skip escaped char
				continue
			}
			if ch == quote {
				if tripleQuote {
					if i+2 < len(code) && code[i+1] == quote && code[i+2] == quote {
						inString = false
						tripleQuote = false
						i += 2
					}
				} else {
					inString = false
				}
			}
			continue
		}

		switch ch {
		case '#':
			for i < len(code) && code[i] != '\n' {
				i++
			}
			i-- // reprocess the newline
		case '\'', '"':
			inString = true
			quote = ch
			stringLine = line
			if i+2 < len(code) && code[i+1] == ch && code[i+2] == ch {
				tripleQuote = true
				i += 2
			}
		case '(', '[', '{':
			stack = append(stack, open{ch: ch, line: line})
		case ')', ']', '}':
			if len(stack) == 0 {
				return fmt.Sprintf("Line %d: unmatched '%c'", line, ch)
			}
			top := stack[len(stack)-1]
			if top.ch != pairs[ch] {
				return fmt.Sprintf("Line %d: closing '%c' does not match opening '%c' on line %d", line, ch, top.ch, top.line)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if inString {
		return fmt.Sprintf("Line %d: unterminated string literal", stringLine)
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return fmt.Sprintf("Line %d: '%c' was never closed", top.line, top.ch)
	}
	return ""
}

// Package jsonrepair 從模型輸出的自由文字中取出第一個 JSON 物件並修復常見錯誤：
// markdown 圍欄、結尾逗號、NaN/Infinity、未加引號的鍵、被截斷的字串與括號。
// 修復後仍無法解析時回傳 ErrUnrepairable。
package jsonrepair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"nutrient-resolver/internal/pkg/common"
)

// ErrUnrepairable 找不到 JSON 或修復後仍不合法
var ErrUnrepairable = errors.New("unrepairable JSON")

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\r?\n?(.*?)(?:```|$)")

// Extract 回傳修復後的 JSON 文字
func Extract(text string) (string, error) {
	body := stripFences(text)
	start := strings.IndexAny(body, "{[")
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object found", ErrUnrepairable)
	}

	repaired := repair(body[start:])
	if !json.Valid([]byte(repaired)) {
		return "", fmt.Errorf("%w: %s", ErrUnrepairable, preview(repaired))
	}
	return repaired, nil
}

// Unmarshal 修復後解析到 v
func Unmarshal(text string, v interface{}) error {
	repaired, err := Extract(text)
	if err != nil {
		return err
	}
	if err := common.ParseJSON(repaired, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnrepairable, err)
	}
	return nil
}

// stripFences 有圍欄時取第一個圍欄內容（圍欄未關閉時取到結尾）
func stripFences(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil && strings.ContainsAny(m[1], "{[") {
		return m[1]
	}
	return text
}

func preview(s string) string {
	const max = 120
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

type scanner struct {
	src   string
	pos   int
	buf   []byte
	stack []byte

	inString  bool
	escaped   bool
	keyString bool
	lastSig   byte
}

func repair(src string) string {
	s := &scanner{src: src, buf: make([]byte, 0, len(src)+16)}
	if s.run() {
		return string(s.buf)
	}
	s.finishTruncated()
	return string(s.buf)
}

// run 掃描到最外層括號關閉為止，關閉時回傳 true
func (s *scanner) run() bool {
	for s.pos < len(s.src) {
		c := s.src[s.pos]

		if s.inString {
			s.stringByte(c)
			s.pos++
			continue
		}

		switch {
		case c == '"':
			s.keyString = s.top() == '{' && (s.lastSig == '{' || s.lastSig == ',')
			s.inString = true
			s.buf = append(s.buf, c)
		case c == '{' || c == '[':
			s.stack = append(s.stack, c)
			s.emit(c)
		case c == '}' || c == ']':
			if len(s.stack) > 0 {
				s.trimTrailingComma()
				if s.lastSig == ':' {
					s.emitString("null")
				}
				open := s.stack[len(s.stack)-1]
				s.stack = s.stack[:len(s.stack)-1]
				s.emit(closerFor(open))
				if len(s.stack) == 0 {
					return true
				}
			}
		case c == ',':
			if s.lastSig == ':' {
				s.emitString("null")
			}
			if s.lastSig != ',' && s.lastSig != '{' && s.lastSig != '[' {
				s.emit(c)
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.buf = append(s.buf, c)
		case c == '-' && strings.HasPrefix(s.src[s.pos:], "-Infinity"):
			s.emitString("null")
			s.pos += len("-Infinity")
			continue
		case c == '+' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1]):
			// 數字前的正號
		case isWordByte(c):
			s.word()
			continue
		default:
			s.emit(c)
		}
		s.pos++
	}
	return false
}

func (s *scanner) stringByte(c byte) {
	switch {
	case s.escaped:
		s.escaped = false
		s.buf = append(s.buf, c)
	case c == '\\':
		s.escaped = true
		s.buf = append(s.buf, c)
	case c == '"':
		s.inString = false
		s.emit(c)
	case c == '\n':
		s.buf = append(s.buf, '\\', 'n')
	case c == '\r':
		s.buf = append(s.buf, '\\', 'r')
	case c == '\t':
		s.buf = append(s.buf, '\\', 't')
	default:
		s.buf = append(s.buf, c)
	}
}

// word 處理引號外的單字：數字、未加引號的鍵、NaN/Infinity、被截斷的 true/false/null
func (s *scanner) word() {
	if isDigit(s.src[s.pos]) {
		s.number()
		return
	}

	start := s.pos
	for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
		s.pos++
	}
	w := s.src[start:s.pos]

	rest := strings.TrimLeft(s.src[s.pos:], " \t\r\n")
	if s.top() == '{' && strings.HasPrefix(rest, ":") {
		s.keyString = true
		s.emitString(`"` + w + `"`)
		return
	}

	switch w {
	case "true", "false", "null":
		s.emitString(w)
	case "NaN", "Infinity", "undefined", "None":
		s.emitString("null")
	default:
		if s.pos == len(s.src) {
			for _, lit := range []string{"true", "false", "null"} {
				if strings.HasPrefix(lit, w) {
					s.emitString(lit)
					return
				}
			}
		}
		quoted, _ := json.Marshal(w)
		s.emitString(string(quoted))
	}
}

// number 輸出數字；帶單位的數字（例如 180g）改為字串
func (s *scanner) number() {
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isDigit(c) || c == '.' {
			s.pos++
			continue
		}
		if (c == 'e' || c == 'E') && s.pos+1 < len(s.src) && (isDigit(s.src[s.pos+1]) || s.src[s.pos+1] == '-' || s.src[s.pos+1] == '+') {
			s.pos += 2
			continue
		}
		break
	}
	end := s.pos
	for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == end {
		s.emitString(s.src[start:end])
		return
	}
	quoted, _ := json.Marshal(s.src[start:s.pos])
	s.emitString(string(quoted))
}

// finishTruncated 補齊被截斷的字串、值與括號
func (s *scanner) finishTruncated() {
	if s.inString {
		if s.escaped {
			s.buf = s.buf[:len(s.buf)-1]
		}
		s.inString = false
		s.emit('"')
	}
	s.trimSpace()

	// 未完成的數字
	for len(s.buf) > 0 {
		last := s.buf[len(s.buf)-1]
		if last == '.' || last == '-' || last == '+' ||
			((last == 'e' || last == 'E') && len(s.buf) > 1 && isDigit(s.buf[len(s.buf)-2])) {
			s.buf = s.buf[:len(s.buf)-1]
			continue
		}
		break
	}
	s.trimSpace()

	if n := len(s.buf); n > 0 {
		switch {
		case s.buf[n-1] == ':':
			s.emitString("null")
		case s.buf[n-1] == '"' && s.keyString && s.top() == '{':
			s.emitString(":null")
		}
	}

	s.trimTrailingComma()
	for i := len(s.stack) - 1; i >= 0; i-- {
		s.emit(closerFor(s.stack[i]))
	}
	s.stack = nil
}

func (s *scanner) emit(c byte) {
	s.buf = append(s.buf, c)
	s.lastSig = c
}

func (s *scanner) emitString(str string) {
	s.buf = append(s.buf, str...)
	s.lastSig = str[len(str)-1]
}

func (s *scanner) top() byte {
	if len(s.stack) == 0 {
		return 0
	}
	return s.stack[len(s.stack)-1]
}

func (s *scanner) trimSpace() {
	for len(s.buf) > 0 {
		switch s.buf[len(s.buf)-1] {
		case ' ', '\t', '\n', '\r':
			s.buf = s.buf[:len(s.buf)-1]
			continue
		}
		break
	}
}

func (s *scanner) trimTrailingComma() {
	s.trimSpace()
	if n := len(s.buf); n > 0 && s.buf[n-1] == ',' {
		s.buf = s.buf[:n-1]
		s.trimSpace()
	}
}

func closerFor(open byte) byte {
	if open == '{' {
		return '}'
	}
	return ']'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

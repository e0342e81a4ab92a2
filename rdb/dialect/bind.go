package dialect

import (
	"strings"
)

// scan 逐字节复制语句，遇到引号外的命名占位符时回调 onParam
// 单引号字符串与引号标识符内的内容原样保留，连续两个前缀（如 @@VERSION、::int）不视为占位符
func scan(text string, prefix byte, quoteOpen, quoteClose string, sb *strings.Builder, onParam func(name string) error) error {
	sb.Grow(len(text))

	for i := 0; i < len(text); {
		c := text[i]

		switch {
		case c == '\'':
			end := skipLiteral(text, i)
			sb.WriteString(text[i:end])
			i = end
			continue
		case c == '"' || (quoteOpen != "" && strings.HasPrefix(text[i:], quoteOpen)):
			closeWith := `"`
			openLen := 1
			if c != '"' {
				closeWith = quoteClose
				openLen = len(quoteOpen)
			}
			end := strings.Index(text[i+openLen:], closeWith)
			if end < 0 {
				sb.WriteString(text[i:])
				return nil
			}
			end = i + openLen + end + len(closeWith)
			sb.WriteString(text[i:end])
			i = end
			continue
		case c == prefix:
			if i+1 < len(text) && text[i+1] == prefix {
				sb.WriteString(text[i : i+2])
				i += 2
				for i < len(text) && isIdentChar(text[i]) {
					sb.WriteByte(text[i])
					i++
				}
				continue
			}
			if i+1 < len(text) && isIdentStart(text[i+1]) {
				j := i + 1
				for j < len(text) && isIdentChar(text[j]) {
					j++
				}
				if err := onParam(text[i+1 : j]); err != nil {
					return err
				}
				i = j
				continue
			}
		}

		sb.WriteByte(c)
		i++
	}
	return nil
}

// skipLiteral 返回单引号字符串结束后的位置，'' 为转义
func skipLiteral(text string, start int) int {
	for i := start + 1; i < len(text); i++ {
		if text[i] != '\'' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '\'' {
			i++
			continue
		}
		return i + 1
	}
	return len(text)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
